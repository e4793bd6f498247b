package toolsystem

import "context"

type JSONType string

const (
	JSONString JSONType = "string"
	JSONNumber JSONType = "number"
	JSONObject JSONType = "object"
	JSONArray  JSONType = "array"
	JSONBool   JSONType = "boolean"
)

type Property struct {
	Type        JSONType
	Description string
	Enum        []string
}

type ToolSpec struct {
	Name        string
	Description string
	Properties  map[string]Property
	Required    []string
}

// Schema renders the parameters as a JSON schema object.
func (s ToolSpec) Schema() map[string]any {
	props := make(map[string]any, len(s.Properties))
	for name, p := range s.Properties {
		prop := map[string]any{"type": string(p.Type)}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[name] = prop
	}
	required := s.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

type OutputKind string

const (
	OutputText  OutputKind = "text"
	OutputImage OutputKind = "image"
)

// ToolOutput is what a tool hands back to be shown on the device.
type ToolOutput struct {
	Kind    OutputKind
	Content string
	URL     string
}

type Invocation struct {
	DeviceID  string
	Arguments map[string]any
}

type ToolHandler func(ctx context.Context, inv Invocation) (*ToolOutput, error)
