package ollama

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xpanvictor/ava/internal/config"
	"github.com/xpanvictor/ava/pkg/assistant"
)

func TestCompleteMapsToolCalls(t *testing.T) {
	var sent map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &sent)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"model":"llama3.1","created_at":"2024-01-01T00:00:00Z","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"draw_image","arguments":{"prompt":"a cat"}}}]},"done":true}`+"\n")
	}))
	defer srv.Close()

	provider, err := New(config.OllamaConfig{Url: srv.URL, Model: "llama3.1"}, srv.Client())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	reply, err := provider.Complete(context.Background(), assistant.ChatRequest{
		Msgs: []assistant.AssistantMessage{{MsgRole: assistant.USER, Content: "draw me a cat"}},
		AvailableTools: []assistant.AssistantToolType{{
			Name:        "draw_image",
			Description: "Draw an image",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"prompt": map[string]any{"type": "string", "description": "what to draw"}},
				"required":   []string{"prompt"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].Name != "draw_image" {
		t.Fatalf("expected draw_image call, got %+v", reply.ToolCalls)
	}
	var args map[string]string
	if err := json.Unmarshal([]byte(reply.ToolCalls[0].Arguments), &args); err != nil {
		t.Fatalf("arguments are not json: %v", err)
	}
	if args["prompt"] != "a cat" {
		t.Errorf("expected prompt a cat, got %v", args)
	}

	if sent["stream"] != false {
		t.Errorf("expected non-streaming request, got %v", sent["stream"])
	}
	if tools, _ := sent["tools"].([]any); len(tools) != 1 {
		t.Errorf("expected 1 declared tool, got %v", sent["tools"])
	}
}

func TestCompleteReturnsPlainContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"model":"llama3.1","message":{"role":"assistant","content":"hello there"},"done":true}`+"\n")
	}))
	defer srv.Close()

	provider, err := New(config.OllamaConfig{Url: srv.URL, Model: "llama3.1"}, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	reply, err := provider.Complete(context.Background(), assistant.ChatRequest{
		Msgs: []assistant.AssistantMessage{{MsgRole: assistant.USER, Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply.Content != "hello there" || len(reply.ToolCalls) != 0 {
		t.Errorf("unexpected reply %+v", reply)
	}
}
