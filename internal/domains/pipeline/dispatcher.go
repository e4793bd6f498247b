package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xpanvictor/ava/pkg/Logger"
	"github.com/xpanvictor/ava/pkg/assistant"
	"github.com/xpanvictor/ava/pkg/io/events"
	toolsystem "github.com/xpanvictor/ava/pkg/tool_system"
)

type DecisionKind string

const (
	DecisionDirectReply DecisionKind = "direct_reply"
	DecisionToolCall    DecisionKind = "tool_call"
)

type Decision struct {
	Kind DecisionKind
	// Text is the reply to speak for a direct reply.
	Text string
	Call assistant.ToolCall
}

// Dispatcher turns a chat completion into exactly one assistant message,
// either by running a requested tool or by speaking the reply.
type Dispatcher struct {
	tools     toolsystem.Registry
	executor  toolsystem.Executor
	speech    assistant.SpeechSynthesizer
	artifacts assistant.ArtifactStore
	logger    *Logger.Logger
}

func NewDispatcher(
	tools toolsystem.Registry,
	speech assistant.SpeechSynthesizer,
	artifacts assistant.ArtifactStore,
	logger *Logger.Logger,
) *Dispatcher {
	if logger == nil {
		logger = Logger.Nop()
	}
	return &Dispatcher{
		tools:     tools,
		executor:  toolsystem.NewExecutor(),
		speech:    speech,
		artifacts: artifacts,
		logger:    logger.Named("dispatcher"),
	}
}

// Tools lists what the chat model is offered.
func (d *Dispatcher) Tools() []assistant.AssistantToolType {
	return d.tools.Declarations()
}

// Decide picks the first known tool call in reply. Unknown tool calls fall
// back to the text content when there is any.
func (d *Dispatcher) Decide(reply *assistant.ChatReply) (Decision, error) {
	if reply == nil {
		return Decision{}, ErrEmptyReply
	}
	text := strings.TrimSpace(reply.Content)

	if len(reply.ToolCalls) > 0 {
		for _, call := range reply.ToolCalls {
			if _, ok := d.tools.Get(call.Name); ok {
				return Decision{Kind: DecisionToolCall, Call: call}, nil
			}
			d.logger.Warnf("model requested unknown tool %q", call.Name)
		}
		if text == "" {
			return Decision{}, fmt.Errorf("%w: %s", ErrUnsupportedTool, reply.ToolCalls[0].Name)
		}
	}

	if text == "" {
		return Decision{}, ErrEmptyReply
	}
	return Decision{Kind: DecisionDirectReply, Text: text}, nil
}

// Invoke carries out decision for deviceID.
func (d *Dispatcher) Invoke(ctx context.Context, deviceID string, decision Decision) (events.Message, error) {
	switch decision.Kind {
	case DecisionToolCall:
		return d.invokeTool(ctx, deviceID, decision.Call)
	case DecisionDirectReply:
		return d.speak(ctx, deviceID, decision.Text)
	}
	return events.Message{}, fmt.Errorf("unknown decision %q", decision.Kind)
}

func (d *Dispatcher) invokeTool(ctx context.Context, deviceID string, call assistant.ToolCall) (events.Message, error) {
	out, err := d.executor.Execute(ctx, d.tools, deviceID, call)
	switch {
	case err == nil:
	case errors.Is(err, toolsystem.ErrInvalidArguments):
		return events.Message{}, fmt.Errorf("%w: %v", ErrInvalidToolArguments, err)
	case errors.Is(err, toolsystem.ErrToolNotFound):
		return events.Message{}, fmt.Errorf("%w: %s", ErrUnsupportedTool, call.Name)
	default:
		return events.Message{}, collaborator(call.Name, err)
	}

	switch out.Kind {
	case toolsystem.OutputImage:
		return events.AssistantImage(out.Content, out.URL), nil
	default:
		return events.AssistantText(out.Content), nil
	}
}

func (d *Dispatcher) speak(ctx context.Context, deviceID, text string) (events.Message, error) {
	audio, err := d.speech.Synthesize(ctx, text)
	if err != nil {
		return events.Message{}, collaborator("synthesize", err)
	}
	url, err := d.artifacts.Save(ctx, deviceID, audio)
	if err != nil {
		return events.Message{}, collaborator("save_artifact", err)
	}
	return events.AssistantSpeech(text, url), nil
}
