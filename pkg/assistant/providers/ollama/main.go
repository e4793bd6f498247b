package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ollama/ollama/api"
	"github.com/presbrey/ollamafarm"
	"github.com/xpanvictor/ava/internal/config"
	"github.com/xpanvictor/ava/pkg/assistant"
)

// OllamaProvider completes chats against a self-hosted ollama server. With
// several servers configured it asks the first one the farm sees online.
type OllamaProvider struct {
	client *api.Client
	farm   *ollamafarm.Farm
	model  string
}

func New(cfg config.OllamaConfig, httpClient *http.Client) (*OllamaProvider, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if len(cfg.Urls) > 0 {
		farm := ollamafarm.New()
		for _, raw := range append([]string{cfg.Url}, cfg.Urls...) {
			if raw == "" {
				continue
			}
			if err := farm.RegisterURL(raw, nil); err != nil {
				return nil, fmt.Errorf("failed to register ollama server %q: %w", raw, err)
			}
		}
		return &OllamaProvider{farm: farm, model: cfg.Model}, nil
	}

	base, err := url.Parse(cfg.Url)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama url %q: %w", cfg.Url, err)
	}
	return &OllamaProvider{
		client: api.NewClient(base, httpClient),
		model:  cfg.Model,
	}, nil
}

func (o *OllamaProvider) pick() (*api.Client, error) {
	if o.farm == nil {
		return o.client, nil
	}
	if srv := o.farm.First(&ollamafarm.Where{Offline: false}); srv != nil {
		return srv.Client(), nil
	}
	return nil, fmt.Errorf("no ollama server online for model %s", o.model)
}

// Complete implements assistant.ChatCompleter.
func (o *OllamaProvider) Complete(ctx context.Context, req assistant.ChatRequest) (*assistant.ChatReply, error) {
	tools, err := convertTools(req.AvailableTools)
	if err != nil {
		return nil, err
	}
	stream := false
	chatReq := api.ChatRequest{
		Model:    o.model,
		Messages: make([]api.Message, 0, len(req.Msgs)),
		Stream:   &stream,
		Tools:    tools,
	}
	for _, msg := range req.Msgs {
		chatReq.Messages = append(chatReq.Messages, api.Message{Role: string(msg.MsgRole), Content: msg.Content})
	}

	client, err := o.pick()
	if err != nil {
		return nil, err
	}

	var final api.ChatResponse
	err = client.Chat(ctx, &chatReq, func(resp api.ChatResponse) error {
		final.Message.Content += resp.Message.Content
		final.Message.ToolCalls = append(final.Message.ToolCalls, resp.Message.ToolCalls...)
		final.Model = resp.Model
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat failed: %w", err)
	}

	reply := &assistant.ChatReply{
		Content:   final.Message.Content,
		ToolCalls: make([]assistant.ToolCall, 0, len(final.Message.ToolCalls)),
	}
	for i, call := range final.Message.ToolCalls {
		args, err := json.Marshal(call.Function.Arguments)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tool arguments: %w", err)
		}
		reply.ToolCalls = append(reply.ToolCalls, assistant.ToolCall{
			Id:        fmt.Sprintf("ollama-%d", i),
			Name:      call.Function.Name,
			Arguments: string(args),
		})
	}
	return reply, nil
}

// api.Tool nests anonymous structs, so the schema goes through json.
func convertTools(in []assistant.AssistantToolType) (api.Tools, error) {
	out := make(api.Tools, 0, len(in))
	for _, tool := range in {
		raw, err := json.Marshal(map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        tool.Name,
				"description": tool.Description,
				"parameters":  tool.Parameters,
			},
		})
		if err != nil {
			return nil, err
		}
		var t api.Tool
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("tool %s has an unsupported schema: %w", tool.Name, err)
		}
		out = append(out, t)
	}
	return out, nil
}
