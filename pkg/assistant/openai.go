package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/xpanvictor/ava/internal/config"
)

// OpenAI backs every collaborator with the hosted OpenAI API: whisper for
// transcription, chat completions with tools, text-to-speech and images.
type OpenAI struct {
	client      openai.Client
	chatModel   string
	speechModel string
	voice       string
	imageModel  string
	imageSize   string
}

// Transcribe implements Transcriber.
func (o *OpenAI) Transcribe(ctx context.Context, audio []byte) (string, error) {
	res, err := o.client.Audio.Transcriptions.New(ctx, openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), "audio.webm", "audio/webm"),
		Model: openai.AudioModelWhisper1,
	})
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return res.Text, nil
}

// Complete implements ChatCompleter.
func (o *OpenAI) Complete(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	convertedMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Msgs))
	for _, msg := range req.Msgs {
		convertedMsgs = append(convertedMsgs, convertToOpenaiMsg(msg))
	}
	params := openai.ChatCompletionNewParams{
		Messages: convertedMsgs,
		Model:    openai.ChatModel(o.chatModel),
	}
	for _, tool := range req.AvailableTools {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        tool.Name,
				Description: openai.String(tool.Description),
				Parameters:  openai.FunctionParameters(tool.Parameters),
			},
		})
	}

	chatCompletion, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("completion failed: %w", err)
	}
	if len(chatCompletion.Choices) == 0 {
		return nil, errors.New("completion returned no choices")
	}

	choice := chatCompletion.Choices[0].Message
	reply := &ChatReply{
		Id:        chatCompletion.ID,
		Content:   choice.Content,
		ToolCalls: make([]ToolCall, 0, len(choice.ToolCalls)),
	}
	for _, call := range choice.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			Id:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return reply, nil
}

// Synthesize implements SpeechSynthesizer. The audio is mp3.
func (o *OpenAI) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := o.client.Audio.Speech.New(ctx, openai.AudioSpeechNewParams{
		Input:          text,
		Model:          openai.SpeechModel(o.speechModel),
		Voice:          openai.AudioSpeechNewParamsVoice(o.voice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormatMP3,
	})
	if err != nil {
		return nil, fmt.Errorf("speech failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech returned status %d", resp.StatusCode)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech body: %w", err)
	}
	return audio, nil
}

// Generate implements ImageGenerator.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (*Image, error) {
	res, err := o.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt: prompt,
		Model:  openai.ImageModel(o.imageModel),
		Size:   openai.ImageGenerateParamsSize(o.imageSize),
		N:      openai.Int(1),
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}
	if len(res.Data) == 0 || res.Data[0].URL == "" {
		return nil, errors.New("image generation returned no url")
	}
	return &Image{URL: res.Data[0].URL, RevisedPrompt: res.Data[0].RevisedPrompt}, nil
}

func convertToOpenaiMsg(msg AssistantMessage) openai.ChatCompletionMessageParamUnion {
	switch msg.MsgRole {
	case ASSISTANT:
		return openai.AssistantMessage(msg.Content)
	case USER:
		return openai.UserMessage(msg.Content)
	case SYSTEM:
		return openai.SystemMessage(msg.Content)
	}
	return openai.UserMessage(msg.Content)
}

func NewOpenAI(cfg config.AssistantConfig) *OpenAI {
	opts := []option.RequestOption{option.WithAPIKey(cfg.OpenAiApiKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.RequestTimeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.RequestTimeout))
	}
	return &OpenAI{
		client:      openai.NewClient(opts...),
		chatModel:   cfg.ChatModel,
		speechModel: cfg.SpeechModel,
		voice:       cfg.Voice,
		imageModel:  cfg.ImageModel,
		imageSize:   cfg.ImageSize,
	}
}
