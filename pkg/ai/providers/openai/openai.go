// Package openai implements the llm.Provider interface on top of the
// official OpenAI Go SDK. Any OpenAI-compatible endpoint works through the
// base URL option.
package openai

import (
	"context"
	"fmt"
	"io"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/openai/openai-go/v3/shared"

	"github.com/arludent/assistant/pkg/ai/llm"
)

// Provider is an OpenAI-backed llm.Provider.
type Provider struct {
	client       openai.Client
	defaultModel string
}

// ProviderOption configures a Provider.
type ProviderOption func(*providerConfig)

type providerConfig struct {
	baseURL string
	model   string
}

// WithBaseURL points the provider at an OpenAI-compatible endpoint.
func WithBaseURL(url string) ProviderOption {
	return func(c *providerConfig) { c.baseURL = url }
}

// WithDefaultModel sets the model used when a call does not override it.
func WithDefaultModel(model string) ProviderOption {
	return func(c *providerConfig) { c.model = model }
}

// New creates a provider with the given API key.
func New(apiKey string, opts ...ProviderOption) *Provider {
	cfg := providerConfig{model: openai.ChatModelGPT4oMini}
	for _, opt := range opts {
		opt(&cfg)
	}

	requestOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.baseURL))
	}

	return &Provider{
		client:       openai.NewClient(requestOpts...),
		defaultModel: cfg.model,
	}
}

// Chat implements llm.Provider.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Response, error) {
	params := p.buildParams(messages, llm.ApplyOptions(opts...))

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai chat completion: empty choices")
	}

	return &llm.Response{
		Message: fromCompletionMessage(completion.Choices[0].Message),
		Usage: llm.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

// ChatStream implements llm.Provider.
func (p *Provider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	params := p.buildParams(messages, llm.ApplyOptions(opts...))
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	return &chatStream{stream: stream}, nil
}

func (p *Provider) buildParams(messages []llm.Message, options llm.Options) openai.ChatCompletionNewParams {
	model := p.defaultModel
	if options.Model != "" {
		model = options.Model
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: toMessageParams(messages),
	}

	if options.Temperature != nil {
		params.Temperature = openai.Float(*options.Temperature)
	}
	if options.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*options.MaxTokens))
	}
	if len(options.Tools) > 0 {
		params.Tools = toToolParams(options.Tools)
	}
	if options.ToolChoice != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String(options.ToolChoice),
		}
	}
	if options.JSONResponse {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	return params
}

func toMessageParams(messages []llm.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem:
			params = append(params, openai.SystemMessage(msg.Content))
		case llm.RoleUser:
			params = append(params, openai.UserMessage(msg.Content))
		case llm.RoleTool:
			params = append(params, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case llm.RoleAssistant:
			params = append(params, toAssistantParam(msg))
		}
	}
	return params
}

func toAssistantParam(msg llm.Message) openai.ChatCompletionMessageParamUnion {
	if len(msg.ToolCalls) == 0 {
		return openai.AssistantMessage(msg.Content)
	}

	assistant := openai.ChatCompletionAssistantMessageParam{}
	if msg.Content != "" {
		assistant.Content.OfString = openai.String(msg.Content)
	}
	for _, tc := range msg.ToolCalls {
		assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			},
		})
	}

	return openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant}
}

func toToolParams(tools []llm.Tool) []openai.ChatCompletionToolUnionParam {
	params := make([]openai.ChatCompletionToolUnionParam, 0, len(tools))
	for _, t := range tools {
		params = append(params, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        t.Function.Name,
			Description: openai.String(t.Function.Description),
			Parameters:  shared.FunctionParameters(t.Function.Parameters),
		}))
	}
	return params
}

func fromCompletionMessage(msg openai.ChatCompletionMessage) llm.Message {
	out := llm.Message{
		Role:    llm.RoleAssistant,
		Content: msg.Content,
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: llm.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return out
}

// chatStream adapts the SDK's SSE stream to llm.Stream. Content deltas are
// yielded as they arrive; the accumulated final message (carrying any tool
// calls) is yielded once, then io.EOF.
type chatStream struct {
	stream    *ssestream.Stream[openai.ChatCompletionChunk]
	acc       openai.ChatCompletionAccumulator
	exhausted bool
	finalSent bool
}

func (s *chatStream) Next() (llm.Message, error) {
	for !s.exhausted {
		if !s.stream.Next() {
			if err := s.stream.Err(); err != nil {
				return llm.Message{}, err
			}
			s.exhausted = true
			break
		}

		chunk := s.stream.Current()
		s.acc.AddChunk(chunk)

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			return llm.Message{
				Role:    llm.RoleAssistant,
				Content: chunk.Choices[0].Delta.Content,
			}, nil
		}
	}

	if !s.finalSent && len(s.acc.Choices) > 0 {
		s.finalSent = true
		final := fromCompletionMessage(s.acc.Choices[0].Message)
		if len(final.ToolCalls) > 0 {
			// Content deltas were already streamed; only the tool calls
			// matter in the final message.
			final.Content = ""
			return final, nil
		}
	}

	return llm.Message{}, io.EOF
}

func (s *chatStream) Close() error {
	return s.stream.Close()
}
