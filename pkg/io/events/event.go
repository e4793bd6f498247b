// Package events defines the notifications pushed to device streams.
//
// An Event is either a Signal (a pipeline stage marker) or a Message (content
// produced by a stage). Both serialize to
//
//	{"type": "signal"|"message", "data": {...}}
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

type Stage string

const (
	UploadReceived Stage = "upload_received"
	Transcribing   Stage = "transcribing"
	Deciding       Stage = "deciding"
	ToolInvoking   Stage = "tool_invoking"
	Synthesizing   Stage = "synthesizing"
	Done           Stage = "done"
	Failed         Stage = "failed"
)

type Owner string

const (
	OwnerUser      Owner = "user"
	OwnerAssistant Owner = "assistant"
)

type Kind string

const (
	KindText   Kind = "text"
	KindSpeech Kind = "speech"
	KindImage  Kind = "image"
)

type EventType string

const (
	TypeSignal  EventType = "signal"
	TypeMessage EventType = "message"
)

// Event is implemented by Signal and Message only.
type Event interface {
	Type() EventType
	isEvent()
}

type Signal struct {
	Status Stage `json:"status"`
	// Error is the failure code, only set on Failed.
	Error string `json:"error,omitempty"`
}

func (Signal) Type() EventType { return TypeSignal }
func (Signal) isEvent()        {}

type Message struct {
	Owner     Owner     `json:"owner"`
	Kind      Kind      `json:"kind"`
	Content   string    `json:"content"`
	URL       string    `json:"url,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (Message) Type() EventType { return TypeMessage }
func (Message) isEvent()        {}

func NewSignal(stage Stage) Signal {
	return Signal{Status: stage}
}

func NewFailure(code string) Signal {
	return Signal{Status: Failed, Error: code}
}

func UserText(transcript string) Message {
	return Message{Owner: OwnerUser, Kind: KindText, Content: transcript, Timestamp: time.Now().UTC()}
}

func AssistantText(text string) Message {
	return Message{Owner: OwnerAssistant, Kind: KindText, Content: text, Timestamp: time.Now().UTC()}
}

func AssistantSpeech(text, url string) Message {
	return Message{Owner: OwnerAssistant, Kind: KindSpeech, Content: text, URL: url, Timestamp: time.Now().UTC()}
}

func AssistantImage(revisedPrompt, url string) Message {
	return Message{Owner: OwnerAssistant, Kind: KindImage, Content: revisedPrompt, URL: url, Timestamp: time.Now().UTC()}
}

type envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode produces the wire frame for ev.
func Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("encode: nil event")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.Type(), err)
	}
	return json.Marshal(envelope{Type: ev.Type(), Data: data})
}

// Decode parses a frame produced by Encode.
func Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case TypeSignal:
		var s Signal
		if err := json.Unmarshal(env.Data, &s); err != nil {
			return nil, fmt.Errorf("decode signal: %w", err)
		}
		return s, nil
	case TypeMessage:
		var m Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			return nil, fmt.Errorf("decode message: %w", err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("decode: unknown event type %q", env.Type)
	}
}
