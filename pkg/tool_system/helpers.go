package toolsystem

import (
	"fmt"
)

// ToolBuilder helps create tools with a fluent interface
type ToolBuilder struct {
	spec    ToolSpec
	version string
	handler ToolHandler
	tags    []string
}

func NewToolBuilder(name, version, description string) *ToolBuilder {
	return &ToolBuilder{
		spec: ToolSpec{
			Name:        name,
			Description: description,
			Properties:  make(map[string]Property),
			Required:    make([]string, 0),
		},
		version: version,
		tags:    make([]string, 0),
	}
}

// AddParameter adds a parameter to the tool
func (tb *ToolBuilder) AddParameter(name string, paramType JSONType, description string, required bool, enum ...string) *ToolBuilder {
	tb.spec.Properties[name] = Property{
		Type:        paramType,
		Description: description,
		Enum:        enum,
	}
	if required {
		tb.spec.Required = append(tb.spec.Required, name)
	}
	return tb
}

func (tb *ToolBuilder) AddStringParameter(name, description string, required bool, enum ...string) *ToolBuilder {
	return tb.AddParameter(name, JSONString, description, required, enum...)
}

func (tb *ToolBuilder) SetHandler(handler ToolHandler) *ToolBuilder {
	tb.handler = handler
	return tb
}

func (tb *ToolBuilder) AddTags(tags ...string) *ToolBuilder {
	tb.tags = append(tb.tags, tags...)
	return tb
}

// Build creates the final Tool
func (tb *ToolBuilder) Build() (Tool, error) {
	if tb.handler == nil {
		return Tool{}, fmt.Errorf("handler is required for tool %s", tb.spec.Name)
	}
	return Tool{
		Spec:    tb.spec,
		Handler: tb.handler,
		Version: tb.version,
		Tags:    tb.tags,
	}, nil
}

// BuildAndRegister creates the tool and registers it to the registry
func (tb *ToolBuilder) BuildAndRegister(registry Registry) error {
	tool, err := tb.Build()
	if err != nil {
		return err
	}
	return registry.Register(tool)
}
