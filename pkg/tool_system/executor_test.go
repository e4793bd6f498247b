package toolsystem

import (
	"context"
	"errors"
	"testing"

	"github.com/xpanvictor/ava/pkg/assistant"
)

func echoRegistry(t *testing.T) (Registry, *[]Invocation) {
	t.Helper()
	calls := make([]Invocation, 0)
	reg := NewMemoryRegistry()
	err := NewToolBuilder("echo", "1.0.0", "Echo the text back").
		AddStringParameter("text", "What to echo", true).
		AddStringParameter("style", "Echo style", false, "loud", "quiet").
		SetHandler(func(ctx context.Context, inv Invocation) (*ToolOutput, error) {
			calls = append(calls, inv)
			return &ToolOutput{Kind: OutputText, Content: inv.Arguments["text"].(string)}, nil
		}).
		BuildAndRegister(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return reg, &calls
}

func TestExecuteRunsHandlerWithDecodedArguments(t *testing.T) {
	reg, calls := echoRegistry(t)

	out, err := NewExecutor().Execute(context.Background(), reg, "abc", assistant.ToolCall{
		Name:      "echo",
		Arguments: `{"text":"hi","style":"loud"}`,
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if out.Content != "hi" || out.Kind != OutputText {
		t.Errorf("unexpected output %+v", out)
	}
	if len(*calls) != 1 || (*calls)[0].DeviceID != "abc" {
		t.Errorf("expected one invocation for abc, got %+v", *calls)
	}
}

func TestExecuteRejectsBadArguments(t *testing.T) {
	reg, calls := echoRegistry(t)
	exec := NewExecutor()

	cases := map[string]string{
		"not json":      `{"text":`,
		"missing":       `{}`,
		"wrong type":    `{"text":42}`,
		"blank":         `{"text":"   "}`,
		"outside enum":  `{"text":"hi","style":"sideways"}`,
		"json but list": `["hi"]`,
	}
	for name, args := range cases {
		_, err := exec.Execute(context.Background(), reg, "abc", assistant.ToolCall{Name: "echo", Arguments: args})
		if !errors.Is(err, ErrInvalidArguments) {
			t.Errorf("%s: expected ErrInvalidArguments, got %v", name, err)
		}
	}
	if len(*calls) != 0 {
		t.Errorf("handler should not run on invalid arguments, ran %d times", len(*calls))
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	reg, _ := echoRegistry(t)
	_, err := NewExecutor().Execute(context.Background(), reg, "abc", assistant.ToolCall{Name: "launch_rocket"})
	if !errors.Is(err, ErrToolNotFound) {
		t.Errorf("expected ErrToolNotFound, got %v", err)
	}
}

func TestDeclarationsCarrySchema(t *testing.T) {
	reg, _ := echoRegistry(t)
	decls := reg.Declarations()
	if len(decls) != 1 || decls[0].Name != "echo" {
		t.Fatalf("unexpected declarations %+v", decls)
	}
	required, _ := decls[0].Parameters["required"].([]string)
	if len(required) != 1 || required[0] != "text" {
		t.Errorf("expected text to be required, got %v", decls[0].Parameters["required"])
	}
	if err := reg.Register(Tool{Spec: ToolSpec{Name: "echo"}}); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}
