package tools

import (
	"fmt"
	"sort"

	"github.com/xpanvictor/ava/pkg/Logger"
	"github.com/xpanvictor/ava/pkg/assistant"
	toolsystem "github.com/xpanvictor/ava/pkg/tool_system"
)

// ToolDependencies holds the collaborators tools may call into
type ToolDependencies struct {
	ImageGenerator assistant.ImageGenerator

	Logger *Logger.Logger
}

// ToolFactory creates tools with dependencies injected
type ToolFactory struct {
	deps     *ToolDependencies
	builders map[string]ToolBuilder
}

func NewToolFactory(deps *ToolDependencies) *ToolFactory {
	if deps.Logger == nil {
		deps.Logger = Logger.Nop()
	}
	return &ToolFactory{
		deps:     deps,
		builders: make(map[string]ToolBuilder),
	}
}

// ToolBuilder interface for tools that need dependencies
type ToolBuilder interface {
	Build(deps *ToolDependencies) (toolsystem.Tool, error)
}

func (tf *ToolFactory) RegisterBuilder(name string, builder ToolBuilder) error {
	if _, exists := tf.builders[name]; exists {
		return fmt.Errorf("tool builder '%s' already registered", name)
	}
	tf.builders[name] = builder
	return nil
}

// BuildInto builds every registered tool and adds it to reg.
func (tf *ToolFactory) BuildInto(reg toolsystem.Registry) error {
	names := make([]string, 0, len(tf.builders))
	for name := range tf.builders {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		tool, err := tf.builders[name].Build(tf.deps)
		if err != nil {
			return fmt.Errorf("failed to build tool '%s': %w", name, err)
		}
		if err := reg.Register(tool); err != nil {
			return err
		}
		tf.deps.Logger.Debugf("registered tool %s v%s %v", tool.Spec.Name, tool.Version, tool.Tags)
	}
	return nil
}
