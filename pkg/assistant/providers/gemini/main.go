package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/xpanvictor/ava/internal/config"
	"github.com/xpanvictor/ava/pkg/assistant"
	"google.golang.org/api/option"
)

// GeminiProvider completes chats with Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func New(ctx context.Context, cfg config.GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is not configured")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini API client: %w", err)
	}

	return &GeminiProvider{
		client: client,
		model:  cfg.Model,
	}, nil
}

// Complete implements assistant.ChatCompleter. System messages become the
// system instruction and the last message is the one sent.
func (gp *GeminiProvider) Complete(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatReply, error) {
	model := gp.client.GenerativeModel(gp.model)
	model.Tools = convertTools(req.AvailableTools)

	system, history, last := splitMessages(req.Msgs)
	if last == nil {
		return nil, fmt.Errorf("gemini: no message to send")
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	cs.History = history
	resp, err := cs.SendMessage(ctx, last.Parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini chat failed: %w", err)
	}
	return convertReply(resp)
}

func (gp *GeminiProvider) Close() error {
	return gp.client.Close()
}

func splitMessages(msgs []assistant.AssistantMessage) (string, []*genai.Content, *genai.Content) {
	var system []string
	var turns []*genai.Content
	for _, msg := range msgs {
		switch msg.MsgRole {
		case assistant.SYSTEM:
			system = append(system, msg.Content)
		case assistant.ASSISTANT:
			turns = append(turns, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			turns = append(turns, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	if len(turns) == 0 {
		return strings.Join(system, "\n"), nil, nil
	}
	return strings.Join(system, "\n"), turns[:len(turns)-1], turns[len(turns)-1]
}

func convertReply(resp *genai.GenerateContentResponse) (*assistant.ChatReply, error) {
	reply := &assistant.ChatReply{ToolCalls: make([]assistant.ToolCall, 0)}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return reply, nil
	}

	var text strings.Builder
	for i, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			args, err := json.Marshal(p.Args)
			if err != nil {
				return nil, fmt.Errorf("failed to encode tool arguments: %w", err)
			}
			reply.ToolCalls = append(reply.ToolCalls, assistant.ToolCall{
				Id:        fmt.Sprintf("gemini-%d", i),
				Name:      p.Name,
				Arguments: string(args),
			})
		}
	}
	reply.Content = text.String()
	return reply, nil
}

// convertTools maps the JSON schema of each tool onto genai schemas.
func convertTools(tools []assistant.AssistantToolType) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}

	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, tool := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertSchema(tool.Parameters),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func convertSchema(in map[string]any) *genai.Schema {
	out := &genai.Schema{Type: schemaType(in["type"])}
	if desc, ok := in["description"].(string); ok {
		out.Description = desc
	}
	out.Enum = stringList(in["enum"])
	out.Required = stringList(in["required"])
	if props, ok := in["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if prop, ok := raw.(map[string]any); ok {
				out.Properties[name] = convertSchema(prop)
			}
		}
	}
	if items, ok := in["items"].(map[string]any); ok {
		out.Items = convertSchema(items)
	}
	return out
}

func schemaType(v any) genai.Type {
	switch v {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
