package toolsetup

import (
	"fmt"

	"github.com/xpanvictor/ava/internal/tools"
	"github.com/xpanvictor/ava/internal/tools/catalog"
	toolsystem "github.com/xpanvictor/ava/pkg/tool_system"
)

// RegisterToolBuilders registers all tool builders with the factory
// This function exists in a separate package to avoid import cycles
func RegisterToolBuilders(factory *tools.ToolFactory) error {
	if err := factory.RegisterBuilder(catalog.DrawImageToolName, &catalog.DrawImageToolBuilder{}); err != nil {
		return fmt.Errorf("failed to register draw image tool: %w", err)
	}
	return nil
}

// NewRegistry builds every catalog tool against deps.
func NewRegistry(deps *tools.ToolDependencies) (toolsystem.Registry, error) {
	factory := tools.NewToolFactory(deps)
	if err := RegisterToolBuilders(factory); err != nil {
		return nil, err
	}
	reg := toolsystem.NewMemoryRegistry()
	if err := factory.BuildInto(reg); err != nil {
		return nil, err
	}
	return reg, nil
}
