package toolsystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/xpanvictor/ava/pkg/assistant"
)

var (
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

type Executor interface {
	Execute(ctx context.Context, reg Registry, deviceID string, call assistant.ToolCall) (*ToolOutput, error)
}

type executor struct{}

// Execute implements Executor. Arguments are decoded and checked against the
// tool's declared parameters before the handler runs.
func (e *executor) Execute(ctx context.Context, reg Registry, deviceID string, call assistant.ToolCall) (*ToolOutput, error) {
	tool, ok := reg.Get(call.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
	}

	args, err := decodeArguments(call.Arguments)
	if err != nil {
		return nil, err
	}
	if err := validateArguments(tool.Spec, args); err != nil {
		return nil, err
	}

	out, err := tool.Handler(ctx, Invocation{DeviceID: deviceID, Arguments: args})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("tool %s returned no output", call.Name)
	}
	return out, nil
}

func decodeArguments(raw string) (map[string]any, error) {
	args := make(map[string]any)
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return args, nil
}

func validateArguments(spec ToolSpec, args map[string]any) error {
	for _, name := range spec.Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("%w: %s is required", ErrInvalidArguments, name)
		}
	}
	for name, value := range args {
		prop, declared := spec.Properties[name]
		if !declared {
			continue
		}
		if !matchesType(prop.Type, value) {
			return fmt.Errorf("%w: %s must be a %s", ErrInvalidArguments, name, prop.Type)
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" && isRequired(spec, name) {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidArguments, name)
		}
		if len(prop.Enum) > 0 && !inEnum(prop.Enum, value) {
			return fmt.Errorf("%w: %s must be one of %v", ErrInvalidArguments, name, prop.Enum)
		}
	}
	return nil
}

func matchesType(t JSONType, v any) bool {
	switch t {
	case JSONString:
		_, ok := v.(string)
		return ok
	case JSONNumber:
		_, ok := v.(float64)
		return ok
	case JSONBool:
		_, ok := v.(bool)
		return ok
	case JSONObject:
		_, ok := v.(map[string]any)
		return ok
	case JSONArray:
		_, ok := v.([]any)
		return ok
	}
	return true
}

func isRequired(spec ToolSpec, name string) bool {
	for _, r := range spec.Required {
		if r == name {
			return true
		}
	}
	return false
}

func inEnum(enum []string, v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	for _, e := range enum {
		if e == s {
			return true
		}
	}
	return false
}

func NewExecutor() Executor {
	return &executor{}
}
