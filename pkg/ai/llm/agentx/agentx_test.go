package agentx

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/ai/llm/memoryx"
	"github.com/arludent/assistant/pkg/ai/llm/toolx"
)

// scriptedProvider returns canned responses in order and records the
// messages of every call.
type scriptedProvider struct {
	responses []llm.Response
	calls     [][]llm.Message
	options   []llm.Options
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Response, error) {
	p.calls = append(p.calls, messages)
	p.options = append(p.options, llm.ApplyOptions(opts...))

	if len(p.responses) == 0 {
		return &llm.Response{Message: llm.NewAssistantMessage("sin guion")}, nil
	}
	response := p.responses[0]
	if len(p.responses) > 1 {
		p.responses = p.responses[1:]
	}
	return &response, nil
}

func (p *scriptedProvider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	panic("not used")
}

// scriptedStream yields canned chunks then io.EOF.
type scriptedStream struct {
	chunks []llm.Message
	closed bool
}

func (s *scriptedStream) Next() (llm.Message, error) {
	if len(s.chunks) == 0 {
		return llm.Message{}, io.EOF
	}
	chunk := s.chunks[0]
	s.chunks = s.chunks[1:]
	return chunk, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

// streamProvider scripts ChatStream; completions after tool execution
// still go through the embedded provider's Chat.
type streamProvider struct {
	scriptedProvider
	stream *scriptedStream
}

func (p *streamProvider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	p.calls = append(p.calls, messages)
	return p.stream, nil
}

type echoTool struct{ called int }

func (e *echoTool) Name() string { return "check_doctor_availability" }

func (e *echoTool) GetTool() llm.Tool {
	return llm.Tool{
		Type: "function",
		Function: llm.ToolFunction{
			Name:       "check_doctor_availability",
			Parameters: map[string]any{"type": "object"},
		},
	}
}

func (e *echoTool) Call(ctx context.Context, inputs string) (any, error) {
	e.called++
	return "Horario disponible", nil
}

func assistantToolCall(id string) llm.Message {
	return llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{
			ID:   id,
			Type: "function",
			Function: llm.FunctionCall{
				Name:      "check_doctor_availability",
				Arguments: `{"doctor_id":1,"fecha":"2026-09-01"}`,
			},
		}},
	}
}

func TestAgent_RunPlainAnswer(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{
		{Message: llm.NewAssistantMessage("Hola, soy el asistente de la clinica.")},
	}}
	memory := memoryx.NewBufferMemory(llm.NewSystemMessage("system"))
	agent := New(llm.NewClient(provider), memory)

	answer, err := agent.Run(context.Background(), "hola")
	require.NoError(t, err)
	assert.Equal(t, "Hola, soy el asistente de la clinica.", answer)

	messages, err := agent.Messages()
	require.NoError(t, err)
	// system, user, assistant
	require.Len(t, messages, 3)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, "hola", messages[1].Content)
}

func TestAgent_RunWithToolRound(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{
		{Message: assistantToolCall("call-1")},
		{Message: llm.NewAssistantMessage("El doctor esta disponible a esa hora.")},
	}}
	tool := &echoTool{}
	memory := memoryx.NewBufferMemory(llm.NewSystemMessage("system"))
	agent := New(llm.NewClient(provider), memory, WithTools(toolx.FromToolx(tool)))

	answer, err := agent.Run(context.Background(), "hay cita manana?")
	require.NoError(t, err)
	assert.Equal(t, "El doctor esta disponible a esa hora.", answer)
	assert.Equal(t, 1, tool.called)

	messages, err := agent.Messages()
	require.NoError(t, err)
	// system, user, assistant tool call, tool result, final assistant
	require.Len(t, messages, 5)
	assert.Equal(t, llm.RoleTool, messages[3].Role)
	assert.Equal(t, "call-1", messages[3].ToolCallID)
	assert.Equal(t, "Horario disponible", messages[3].Content)

	// The follow-up call saw the tool result.
	require.Len(t, provider.calls, 2)
	last := provider.calls[1][len(provider.calls[1])-1]
	assert.Equal(t, llm.RoleTool, last.Role)
}

func TestAgent_ForcesToolChoiceNoneAfterAutoBudget(t *testing.T) {
	// The model keeps asking for tools forever.
	provider := &scriptedProvider{responses: []llm.Response{
		{Message: assistantToolCall("loop")},
	}}
	tool := &echoTool{}
	memory := memoryx.NewBufferMemory(llm.NewSystemMessage("system"))
	agent := New(llm.NewClient(provider), memory,
		WithTools(toolx.FromToolx(tool)),
		WithMaxAutoIterations(2),
		WithMaxTotalIterations(5),
	)

	_, err := agent.Run(context.Background(), "hola")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum total iterations")

	// Iterations 0 and 1 run with "auto", the rest with "none".
	var choices []string
	for _, opts := range provider.options {
		if opts.ToolChoice != "" {
			choices = append(choices, opts.ToolChoice)
		}
	}
	assert.Equal(t, []string{"auto", "auto", "none", "none", "none"}, choices)
}

func TestAgent_StreamWithToolsAssemblesDeltas(t *testing.T) {
	provider := &streamProvider{stream: &scriptedStream{chunks: []llm.Message{
		{Role: llm.RoleAssistant, Content: "Hola, "},
		{Role: llm.RoleAssistant, Content: "como "},
		{Role: llm.RoleAssistant, Content: "estas?"},
	}}}
	memory := memoryx.NewBufferMemory(llm.NewSystemMessage("system"))
	agent := New(llm.NewClient(provider), memory)

	var chunks []string
	err := agent.StreamWithTools(context.Background(), "hola", func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hola, ", "como ", "estas?"}, chunks)
	assert.True(t, provider.stream.closed)

	// Memory holds the assembled message, not the deltas.
	messages, err := agent.Messages()
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "Hola, como estas?", messages[2].Content)
}

func TestAgent_StreamWithToolsResolvesToolCallMidStream(t *testing.T) {
	provider := &streamProvider{stream: &scriptedStream{chunks: []llm.Message{
		{Role: llm.RoleAssistant, Content: "Dejame revisar la agenda."},
		assistantToolCall("call-7"),
	}}}
	// The follow-up after tool execution is a plain completion.
	provider.responses = []llm.Response{
		{Message: llm.NewAssistantMessage("El doctor esta disponible a esa hora.")},
	}
	tool := &echoTool{}
	memory := memoryx.NewBufferMemory(llm.NewSystemMessage("system"))
	agent := New(llm.NewClient(provider), memory, WithTools(toolx.FromToolx(tool)))

	var chunks []string
	err := agent.StreamWithTools(context.Background(), "hay cita manana?", func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)

	assert.Equal(t, 1, tool.called)
	joined := strings.Join(chunks, "")
	assert.Contains(t, joined, "Dejame revisar la agenda.")
	assert.Contains(t, joined, "El doctor esta disponible a esa hora.")

	// system, user, assistant tool call, tool result, final assistant
	messages, err := agent.Messages()
	require.NoError(t, err)
	require.Len(t, messages, 5)
	assert.Equal(t, llm.RoleTool, messages[3].Role)
	assert.Equal(t, "call-7", messages[3].ToolCallID)
}

func TestAgent_ClearMemoryKeepsSystemPrompt(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.Response{
		{Message: llm.NewAssistantMessage("ok")},
	}}
	memory := memoryx.NewBufferMemory(llm.NewSystemMessage("system"))
	agent := New(llm.NewClient(provider), memory)

	_, err := agent.Run(context.Background(), "hola")
	require.NoError(t, err)

	require.NoError(t, agent.ClearMemory())

	messages, err := agent.Messages()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
}
