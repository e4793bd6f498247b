package toolsystem

import (
	"fmt"
	"sort"
	"sync"

	"github.com/xpanvictor/ava/pkg/assistant"
)

type Tool struct {
	Spec    ToolSpec
	Handler ToolHandler
	Version string   // for registry management
	Tags    []string // for categorization
}

type Registry interface {
	Register(t Tool) error
	Get(name string) (Tool, bool)
	List() []Tool
	// Declarations lists the tools in the shape the chat model is offered.
	Declarations() []assistant.AssistantToolType
}

type memoryRegistry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// Get implements Registry.
func (m *memoryRegistry) Get(name string) (Tool, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tool, exist := m.tools[name]
	return tool, exist
}

// Declarations implements Registry.
func (m *memoryRegistry) Declarations() []assistant.AssistantToolType {
	tools := m.List()
	out := make([]assistant.AssistantToolType, 0, len(tools))
	for _, tool := range tools {
		out = append(out, assistant.AssistantToolType{
			Name:        tool.Spec.Name,
			Description: tool.Spec.Description,
			Parameters:  tool.Spec.Schema(),
		})
	}
	return out
}

// List implements Registry. Tools come back sorted by name.
func (m *memoryRegistry) List() []Tool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Tool, 0, len(m.tools))
	for _, tool := range m.tools {
		out = append(out, tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Spec.Name < out[j].Spec.Name })
	return out
}

// Register implements Registry.
func (m *memoryRegistry) Register(t Tool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.Spec.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, exists := m.tools[t.Spec.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Spec.Name)
	}
	m.tools[t.Spec.Name] = t
	return nil
}

func NewMemoryRegistry() Registry {
	return &memoryRegistry{
		tools: make(map[string]Tool),
	}
}
