// Package llm defines the provider-agnostic chat completion interface.
package llm

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single entry in a conversation.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// NewToolMessage creates a tool result message tied to a tool call.
func NewToolMessage(toolCallID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: toolCallID}
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a callable function exposed to the model.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is the JSON-schema description of a tool.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Usage reports token consumption for a completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a completed chat turn.
type Response struct {
	Message Message `json:"message"`
	Usage   Usage   `json:"usage"`
}

// Stream yields message chunks until io.EOF.
type Stream interface {
	Next() (Message, error)
	Close() error
}

// Options holds per-call completion parameters.
type Options struct {
	Model        string
	Temperature  *float64
	MaxTokens    *int
	Tools        []Tool
	ToolChoice   string
	JSONResponse bool
}

// Option mutates completion options.
type Option func(*Options)

// WithModel overrides the provider's default model.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(o *Options) { o.Temperature = &t }
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = &n }
}

// WithTools exposes tools to the model.
func WithTools(tools []Tool) Option {
	return func(o *Options) { o.Tools = tools }
}

// WithToolChoice sets the tool choice mode ("auto", "none", "required").
func WithToolChoice(choice string) Option {
	return func(o *Options) { o.ToolChoice = choice }
}

// WithJSONResponse forces the model to answer with a JSON object.
func WithJSONResponse() Option {
	return func(o *Options) { o.JSONResponse = true }
}

// ApplyOptions folds a list of Option into an Options value.
func ApplyOptions(opts ...Option) Options {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}
	return options
}

// Provider is implemented by concrete model backends.
type Provider interface {
	Chat(ctx context.Context, messages []Message, opts ...Option) (*Response, error)
	ChatStream(ctx context.Context, messages []Message, opts ...Option) (Stream, error)
}

// Client is a thin wrapper over a Provider. The zero value is not usable;
// callers can compare against it to detect an uninitialized client.
type Client struct {
	provider Provider
}

// NewClient creates a client for the given provider.
func NewClient(provider Provider) Client {
	return Client{provider: provider}
}

// Chat runs a chat completion.
func (c *Client) Chat(ctx context.Context, messages []Message, opts ...Option) (*Response, error) {
	return c.provider.Chat(ctx, messages, opts...)
}

// ChatStream runs a streaming chat completion.
func (c *Client) ChatStream(ctx context.Context, messages []Message, opts ...Option) (Stream, error) {
	return c.provider.ChatStream(ctx, messages, opts...)
}
