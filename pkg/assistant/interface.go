package assistant

import (
	"context"
)

type Role string

const (
	USER      Role = "user"
	ASSISTANT Role = "assistant"
	SYSTEM    Role = "system"
)

type AssistantMessage struct {
	Content string
	MsgRole Role
}

// AssistantToolType declares a function the model may call. Parameters is a
// JSON schema object.
type AssistantToolType struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ToolCall is a function call requested by the model. Arguments is the raw
// JSON text exactly as the model produced it.
type ToolCall struct {
	Id        string
	Name      string
	Arguments string
}

type ChatRequest struct {
	Msgs           []AssistantMessage
	AvailableTools []AssistantToolType
}

type ChatReply struct {
	Id        string
	Content   string
	ToolCalls []ToolCall
}

type Image struct {
	URL           string
	RevisedPrompt string
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type ChatCompleter interface {
	Complete(ctx context.Context, req ChatRequest) (*ChatReply, error)
}

type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type ImageGenerator interface {
	Generate(ctx context.Context, prompt string) (*Image, error)
}

// ArtifactStore persists generated media and returns the public URL it is
// served from.
type ArtifactStore interface {
	Save(ctx context.Context, deviceID string, data []byte) (string, error)
}
