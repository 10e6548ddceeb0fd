// Package agentx runs the tool-calling loop: chat completion, tool
// dispatch, completion again, until the model answers in plain text or the
// iteration cap is hit.
package agentx

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/ai/llm/memoryx"
	"github.com/arludent/assistant/pkg/ai/llm/toolx"
	"github.com/arludent/assistant/pkg/logx"
)

// Agent is an LLM client with memory and tools.
type Agent struct {
	client             *llm.Client
	tools              *toolx.ToolxClient
	memory             memoryx.Memory
	options            []llm.Option
	maxAutoIterations  int // iterations with "auto" tool choice
	maxTotalIterations int // hard cap on the loop
}

// AgentOption configures an Agent.
type AgentOption func(*Agent)

// WithOptions adds LLM options applied to every completion call.
func WithOptions(options ...llm.Option) AgentOption {
	return func(a *Agent) {
		a.options = append(a.options, options...)
	}
}

// WithTools gives the agent a tool registry.
func WithTools(tools *toolx.ToolxClient) AgentOption {
	return func(a *Agent) {
		a.tools = tools
	}
}

// WithMaxAutoIterations sets how many iterations keep tool choice "auto".
func WithMaxAutoIterations(max int) AgentOption {
	return func(a *Agent) {
		a.maxAutoIterations = max
	}
}

// WithMaxTotalIterations sets the hard iteration cap.
func WithMaxTotalIterations(max int) AgentOption {
	return func(a *Agent) {
		a.maxTotalIterations = max
	}
}

// New creates an agent.
func New(client llm.Client, memory memoryx.Memory, opts ...AgentOption) *Agent {
	agent := &Agent{
		client:             &client,
		memory:             memory,
		maxAutoIterations:  3,
		maxTotalIterations: 10,
	}

	for _, opt := range opts {
		opt(agent)
	}

	logx.WithFields(logx.Fields{
		"max_auto_iterations":  agent.maxAutoIterations,
		"max_total_iterations": agent.maxTotalIterations,
		"has_tools":            agent.tools != nil,
	}).Debug("Agent initialized")

	return agent
}

// Run processes a user message and returns the final response.
func (a *Agent) Run(ctx context.Context, userInput string) (string, error) {
	logx.WithField("input_length", len(userInput)).Info("Starting agent run")

	if err := a.memory.Add(llm.NewUserMessage(userInput)); err != nil {
		logx.WithError(err).Error("Failed to add user message to memory")
		return "", fmt.Errorf("failed to add user message: %w", err)
	}

	messages, err := a.memory.Messages()
	if err != nil {
		logx.WithError(err).Error("Failed to retrieve messages from memory")
		return "", fmt.Errorf("failed to retrieve messages: %w", err)
	}
	logx.WithField("message_count", len(messages)).Debug("Retrieved messages from memory")

	options := a.options
	if a.tools != nil {
		toolList := a.tools.GetTools()
		if len(toolList) > 0 {
			options = append(options, llm.WithTools(toolList))
			logx.WithField("tool_count", len(toolList)).Debug("Added tools to LLM options")
		}
	}

	response, err := a.client.Chat(ctx, messages, options...)
	if err != nil {
		logx.WithError(err).Error("LLM call failed")
		return "", fmt.Errorf("LLM error: %w", err)
	}

	logx.WithFields(logx.Fields{
		"has_content":    response.Message.Content != "",
		"has_tool_calls": len(response.Message.ToolCalls) > 0,
		"token_usage":    response.Usage,
	}).Debug("LLM response received")

	if err := a.memory.Add(response.Message); err != nil {
		logx.WithError(err).Error("Failed to add assistant response to memory")
		return "", fmt.Errorf("failed to add assistant response: %w", err)
	}

	if len(response.Message.ToolCalls) > 0 && a.tools != nil {
		logx.WithField("tool_call_count", len(response.Message.ToolCalls)).Info("Processing tool calls")
		return a.handleToolCallsWithLimit(ctx, response.Message.ToolCalls, 0)
	}

	logx.Info("Agent run completed")
	return response.Message.Content, nil
}

// handleToolCallsWithLimit executes tool calls and feeds results back to
// the model, recursing while the model keeps asking for tools.
func (a *Agent) handleToolCallsWithLimit(ctx context.Context, toolCalls []llm.ToolCall, iteration int) (string, error) {
	logx.WithFields(logx.Fields{
		"iteration":       iteration,
		"tool_call_count": len(toolCalls),
	}).Debug("Handling tool calls")

	if iteration >= a.maxTotalIterations {
		logx.WithFields(logx.Fields{
			"iteration":            iteration,
			"max_total_iterations": a.maxTotalIterations,
		}).Warn("Maximum total iterations exceeded")
		return "", fmt.Errorf("maximum total iterations (%d) exceeded", a.maxTotalIterations)
	}

	for i, tc := range toolCalls {
		logx.WithFields(logx.Fields{
			"tool_index": i,
			"tool_name":  tc.Function.Name,
			"tool_id":    tc.ID,
		}).Debug("Executing tool")

		toolResponse, err := a.tools.Call(ctx, tc)
		if err != nil {
			logx.WithFields(logx.Fields{
				"tool_name": tc.Function.Name,
				"tool_id":   tc.ID,
			}).WithError(err).Error("Tool execution failed")
			return "", fmt.Errorf("tool execution error: %w", err)
		}

		if err := a.memory.Add(toolResponse); err != nil {
			logx.WithError(err).Error("Failed to add tool response to memory")
			return "", fmt.Errorf("failed to add tool response: %w", err)
		}
	}

	messages, err := a.memory.Messages()
	if err != nil {
		logx.WithError(err).Error("Failed to retrieve messages from memory")
		return "", fmt.Errorf("failed to retrieve messages: %w", err)
	}

	// Tool choice stays "auto" for the first maxAutoIterations, then is
	// forced to "none" so the model has to answer.
	options := a.options
	toolChoice := "none"
	if a.tools != nil {
		toolList := a.tools.GetTools()
		if len(toolList) > 0 {
			options = append(options, llm.WithTools(toolList))

			if iteration < a.maxAutoIterations {
				toolChoice = "auto"
			} else {
				logx.WithField("iteration", iteration).Warn("Forcing tool choice to 'none' due to iteration limit")
			}
			options = append(options, llm.WithToolChoice(toolChoice))
		}
	}

	logx.WithFields(logx.Fields{
		"iteration":   iteration,
		"tool_choice": toolChoice,
	}).Debug("Calling LLM with tool results")

	response, err := a.client.Chat(ctx, messages, options...)
	if err != nil {
		logx.WithError(err).Error("LLM call failed after tool execution")
		return "", fmt.Errorf("LLM error: %w", err)
	}

	if err := a.memory.Add(response.Message); err != nil {
		logx.WithError(err).Error("Failed to add assistant response to memory")
		return "", fmt.Errorf("failed to add assistant response: %w", err)
	}

	if len(response.Message.ToolCalls) > 0 {
		logx.WithField("iteration", iteration+1).Debug("More tool calls to process")
		return a.handleToolCallsWithLimit(ctx, response.Message.ToolCalls, iteration+1)
	}

	logx.WithField("iteration", iteration).Info("Tool call chain completed")
	return response.Message.Content, nil
}

// ClearMemory resets the conversation but keeps the system prompt.
func (a *Agent) ClearMemory() error {
	logx.Info("Clearing agent memory")
	return a.memory.Clear()
}

// AddMessage adds a message to memory.
func (a *Agent) AddMessage(message llm.Message) error {
	logx.WithField("role", message.Role).Debug("Adding message to memory")
	return a.memory.Add(message)
}

// Messages returns all messages in memory.
func (a *Agent) Messages() ([]llm.Message, error) {
	return a.memory.Messages()
}

// StreamWithTools streams the response, then resolves any tool calls the
// model made and streams the follow-up answer.
func (a *Agent) StreamWithTools(ctx context.Context, userInput string, streamHandler func(chunk string)) error {
	logx.WithField("input_length", len(userInput)).Info("Starting stream with tools")

	if err := a.memory.Add(llm.NewUserMessage(userInput)); err != nil {
		return fmt.Errorf("failed to add user message: %w", err)
	}

	messages, err := a.memory.Messages()
	if err != nil {
		return fmt.Errorf("failed to retrieve messages: %w", err)
	}

	options := a.options
	if a.tools != nil {
		toolList := a.tools.GetTools()
		if len(toolList) > 0 {
			options = append(options, llm.WithTools(toolList))
		}
	}

	stream, err := a.client.ChatStream(ctx, messages, options...)
	if err != nil {
		logx.WithError(err).Error("Failed to start stream")
		return err
	}
	defer stream.Close()

	var responseContent string
	var toolCalls []llm.ToolCall

	for {
		chunk, err := stream.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			logx.WithError(err).Error("Stream error")
			return err
		}

		if chunk.Content != "" {
			responseContent += chunk.Content
			streamHandler(chunk.Content)
		}
		if len(chunk.ToolCalls) > 0 {
			toolCalls = chunk.ToolCalls
		}
	}

	fullMessage := llm.Message{
		Role:      llm.RoleAssistant,
		Content:   responseContent,
		ToolCalls: toolCalls,
	}

	if err := a.memory.Add(fullMessage); err != nil {
		return fmt.Errorf("failed to add assistant response: %w", err)
	}

	if len(toolCalls) > 0 && a.tools != nil {
		logx.WithField("tool_call_count", len(toolCalls)).Info("Processing tool calls from stream")

		finalResponse, err := a.handleToolCallsWithLimit(ctx, toolCalls, 0)
		if err != nil {
			logx.WithError(err).Error("Failed to handle tool calls")
			return err
		}

		streamHandler(finalResponse)
	}

	return nil
}
