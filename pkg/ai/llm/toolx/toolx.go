// Package toolx is the tool registry bridging domain tools and the LLM
// tool-calling protocol.
package toolx

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/logx"
)

// Toolx is a callable tool exposed to the model.
type Toolx interface {
	// Name returns the tool's function name.
	Name() string
	// GetTool returns the JSON-schema tool definition.
	GetTool() llm.Tool
	// Call executes the tool with raw JSON arguments.
	Call(ctx context.Context, inputs string) (any, error)
}

// ToolxClient holds a set of tools keyed by name.
type ToolxClient struct {
	tools map[string]Toolx
}

// FromToolx builds a registry from the given tools.
func FromToolx(tools ...Toolx) *ToolxClient {
	c := &ToolxClient{tools: make(map[string]Toolx, len(tools))}
	for _, t := range tools {
		c.tools[t.Name()] = t
	}
	return c
}

// GetTools returns the tool definitions for the model.
func (c *ToolxClient) GetTools() []llm.Tool {
	list := make([]llm.Tool, 0, len(c.tools))
	for _, t := range c.tools {
		list = append(list, t.GetTool())
	}
	return list
}

// Names returns the registered tool names.
func (c *ToolxClient) Names() []string {
	names := make([]string, 0, len(c.tools))
	for name := range c.tools {
		names = append(names, name)
	}
	return names
}

// Call dispatches a model tool call to the matching tool and wraps the
// result as a tool message. Execution errors are returned as tool output so
// the model can recover; only an unknown tool is a hard error.
func (c *ToolxClient) Call(ctx context.Context, tc llm.ToolCall) (llm.Message, error) {
	tool, ok := c.tools[tc.Function.Name]
	if !ok {
		return llm.Message{}, fmt.Errorf("unknown tool %q", tc.Function.Name)
	}

	result, err := tool.Call(ctx, tc.Function.Arguments)
	if err != nil {
		logx.WithFields(logx.Fields{
			"tool_name": tc.Function.Name,
			"tool_id":   tc.ID,
		}).WithError(err).Warn("Tool returned error, surfacing to model")
		return llm.NewToolMessage(tc.ID, fmt.Sprintf("Error: %v", err)), nil
	}

	content, err := stringifyResult(result)
	if err != nil {
		return llm.Message{}, fmt.Errorf("encode tool result: %w", err)
	}

	return llm.NewToolMessage(tc.ID, content), nil
}

func stringifyResult(result any) (string, error) {
	switch v := result.(type) {
	case string:
		return v, nil
	case nil:
		return "", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}
