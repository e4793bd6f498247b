package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEncodeSignalShape(t *testing.T) {
	frame, err := Encode(NewSignal(Transcribing))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"type":"signal","data":{"status":"transcribing"}}`
	if string(frame) != want {
		t.Errorf("expected %s, got %s", want, frame)
	}
}

func TestEncodeFailureCarriesCode(t *testing.T) {
	frame, err := Encode(NewFailure("empty_reply"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := `{"type":"signal","data":{"status":"failed","error":"empty_reply"}}`
	if string(frame) != want {
		t.Errorf("expected %s, got %s", want, frame)
	}
}

func TestEncodeMessageShape(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := Message{Owner: OwnerAssistant, Kind: KindImage, Content: "a cat", URL: "https://img/1", Timestamp: ts}

	frame, err := Encode(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(frame, &raw); err != nil {
		t.Fatalf("frame is not json: %v", err)
	}
	if string(raw["type"]) != `"message"` {
		t.Errorf("expected message type, got %s", raw["type"])
	}
	var data map[string]any
	if err := json.Unmarshal(raw["data"], &data); err != nil {
		t.Fatalf("data is not an object: %v", err)
	}
	for key, want := range map[string]string{
		"owner":     "assistant",
		"kind":      "image",
		"content":   "a cat",
		"url":       "https://img/1",
		"timestamp": "2024-03-01T12:00:00Z",
	} {
		if data[key] != want {
			t.Errorf("data[%s]: expected %q, got %v", key, want, data[key])
		}
	}
}

func TestTextMessageOmitsURL(t *testing.T) {
	frame, err := Encode(UserText("hello"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := env.Data["url"]; ok {
		t.Error("text message should not carry a url")
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"nope","data":{}}`)); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestDecodeSignal(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"signal","data":{"status":"done"}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	sig, ok := ev.(Signal)
	if !ok || sig.Status != Done {
		t.Errorf("expected done signal, got %#v", ev)
	}
}
