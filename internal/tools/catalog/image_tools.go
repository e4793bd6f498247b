package catalog

import (
	"context"
	"fmt"

	"github.com/xpanvictor/ava/internal/tools"
	"github.com/xpanvictor/ava/pkg/Logger"
	toolsystem "github.com/xpanvictor/ava/pkg/tool_system"
)

const DrawImageToolName = "draw_image"

// DrawImageToolBuilder builds the image generation tool
type DrawImageToolBuilder struct{}

func (d *DrawImageToolBuilder) Build(deps *tools.ToolDependencies) (toolsystem.Tool, error) {
	if deps.ImageGenerator == nil {
		return toolsystem.Tool{}, fmt.Errorf("draw_image needs an image generator")
	}
	logger := deps.Logger
	if logger == nil {
		logger = Logger.Nop()
	}
	return toolsystem.NewToolBuilder(DrawImageToolName, "1.0.0", "Draw an image from a text description").
		AddStringParameter("prompt", "A detailed description of the image to draw", true).
		SetHandler(func(ctx context.Context, inv toolsystem.Invocation) (*toolsystem.ToolOutput, error) {
			prompt, _ := inv.Arguments["prompt"].(string)

			img, err := deps.ImageGenerator.Generate(ctx, prompt)
			if err != nil {
				return nil, err
			}
			content := img.RevisedPrompt
			if content == "" {
				content = prompt
			}
			logger.Debugf("image drawn for device %s", inv.DeviceID)
			return &toolsystem.ToolOutput{
				Kind:    toolsystem.OutputImage,
				Content: content,
				URL:     img.URL,
			}, nil
		}).
		AddTags("image", "media").
		Build()
}
