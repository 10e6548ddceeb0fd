package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arludent/assistant/clinic"
	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/ai/llm/memoryx/memoryinfra"
	"github.com/arludent/assistant/pkg/ai/llm/memoryx/memorysrv"
	"github.com/arludent/assistant/pkg/ai/llm/toolx"
	"github.com/arludent/assistant/pkg/errx"
)

// replyProvider answers every completion with a fixed reply and records
// the message lists it was called with. Safe for concurrent calls.
type replyProvider struct {
	reply string
	err   error

	mu    sync.Mutex
	calls [][]llm.Message
}

func (p *replyProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (*llm.Response, error) {
	copied := make([]llm.Message, len(messages))
	copy(copied, messages)

	p.mu.Lock()
	p.calls = append(p.calls, copied)
	p.mu.Unlock()

	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Message: llm.NewAssistantMessage(p.reply)}, nil
}

func (p *replyProvider) ChatStream(ctx context.Context, messages []llm.Message, opts ...llm.Option) (llm.Stream, error) {
	panic("not used")
}

func newTestOrchestrator(t *testing.T, provider llm.Provider, windowSize int) *Orchestrator {
	t.Helper()

	repo := memoryinfra.NewInMemorySessionRepository(0)
	t.Cleanup(repo.Stop)

	return New(Config{
		LLMClient:      llm.NewClient(provider),
		SessionService: memorysrv.NewSessionService(repo, windowSize),
		ToolRegistry:   toolx.FromToolx(),
		PromptBuilder:  clinic.NewPromptBuilder(clinic.DefaultProfile()),
		Model:          "gpt-4o-mini",
		Temperature:    0.4,
		MaxTokens:      3000,
		MaxIterations:  10,
	})
}

func TestHandleChat_CreatesSession(t *testing.T) {
	provider := &replyProvider{reply: "Hola, como puedo ayudarte?"}
	orch := newTestOrchestrator(t, provider, 20)

	response, err := orch.HandleChat(context.Background(), ChatRequest{Message: "hola"})
	require.NoError(t, err)

	assert.Equal(t, "Hola, como puedo ayudarte?", response.Message)
	assert.NotEmpty(t, response.SessionID)
	assert.Equal(t, true, response.Metadata["session_created"])
	assert.False(t, response.Timestamp.IsZero())

	// The model saw the clinic system prompt first.
	require.NotEmpty(t, provider.calls)
	first := provider.calls[0]
	require.NotEmpty(t, first)
	assert.Equal(t, llm.RoleSystem, first[0].Role)
	assert.Contains(t, first[0].Content, "Clinica Dental Arludent")
	assert.Contains(t, first[0].Content, "FECHA ACTUAL")
}

func TestHandleChat_SessionContinuity(t *testing.T) {
	provider := &replyProvider{reply: "claro"}
	orch := newTestOrchestrator(t, provider, 20)
	ctx := context.Background()

	first, err := orch.HandleChat(ctx, ChatRequest{Message: "me llamo Maria"})
	require.NoError(t, err)

	second, err := orch.HandleChat(ctx, ChatRequest{
		Message:   "como me llamo?",
		SessionID: first.SessionID,
	})
	require.NoError(t, err)

	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, false, second.Metadata["session_created"])

	// The second turn saw the first turn's messages.
	lastCall := provider.calls[len(provider.calls)-1]
	var contents []string
	for _, msg := range lastCall {
		contents = append(contents, msg.Content)
	}
	joined := strings.Join(contents, "\n")
	assert.Contains(t, joined, "me llamo Maria")
	assert.Contains(t, joined, "como me llamo?")
}

func TestHandleChat_UnknownSessionStartsNew(t *testing.T) {
	provider := &replyProvider{reply: "hola"}
	orch := newTestOrchestrator(t, provider, 20)

	response, err := orch.HandleChat(context.Background(), ChatRequest{
		Message:   "hola",
		SessionID: "no-such-session",
	})
	require.NoError(t, err)

	assert.NotEqual(t, "no-such-session", response.SessionID)
	assert.Equal(t, true, response.Metadata["session_created"])
}

func TestHandleChat_SessionIsolation(t *testing.T) {
	provider := &replyProvider{reply: "ok"}
	orch := newTestOrchestrator(t, provider, 20)
	ctx := context.Background()

	a, err := orch.HandleChat(ctx, ChatRequest{Message: "secreto de A"})
	require.NoError(t, err)
	b, err := orch.HandleChat(ctx, ChatRequest{Message: "hola de B"})
	require.NoError(t, err)
	require.NotEqual(t, a.SessionID, b.SessionID)

	// B's turn never saw A's message.
	lastCall := provider.calls[len(provider.calls)-1]
	for _, msg := range lastCall {
		assert.NotContains(t, msg.Content, "secreto de A")
	}
}

func TestHandleChat_WindowBoundsHistory(t *testing.T) {
	provider := &replyProvider{reply: "ok"}
	orch := newTestOrchestrator(t, provider, 4)
	ctx := context.Background()

	first, err := orch.HandleChat(ctx, ChatRequest{Message: "turno 0"})
	require.NoError(t, err)

	for i := 1; i < 8; i++ {
		_, err := orch.HandleChat(ctx, ChatRequest{
			Message:   fmt.Sprintf("turno %d", i),
			SessionID: first.SessionID,
		})
		require.NoError(t, err)
	}

	lastCall := provider.calls[len(provider.calls)-1]
	// System prompt plus at most the window of conversation messages.
	assert.LessOrEqual(t, len(lastCall), 1+4)
	assert.Equal(t, llm.RoleSystem, lastCall[0].Role)

	// The oldest turns fell out of the window.
	for _, msg := range lastCall {
		assert.NotContains(t, msg.Content, "turno 0")
	}
}

func TestHandleChat_Validation(t *testing.T) {
	orch := newTestOrchestrator(t, &replyProvider{reply: "ok"}, 20)
	ctx := context.Background()

	t.Run("empty message", func(t *testing.T) {
		_, err := orch.HandleChat(ctx, ChatRequest{Message: "   "})
		require.Error(t, err)

		var e *errx.Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, 400, e.HTTPStatus)
	})

	t.Run("message too long", func(t *testing.T) {
		_, err := orch.HandleChat(ctx, ChatRequest{Message: strings.Repeat("a", 1001)})
		require.Error(t, err)

		var e *errx.Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, 400, e.HTTPStatus)
	})

	t.Run("message at limit passes", func(t *testing.T) {
		_, err := orch.HandleChat(ctx, ChatRequest{Message: strings.Repeat("a", 1000)})
		assert.NoError(t, err)
	})

	t.Run("limit counts characters not bytes", func(t *testing.T) {
		_, err := orch.HandleChat(ctx, ChatRequest{Message: strings.Repeat("ñ", 1000)})
		assert.NoError(t, err)
	})

	t.Run("multibyte message over limit", func(t *testing.T) {
		_, err := orch.HandleChat(ctx, ChatRequest{Message: strings.Repeat("ñ", 1001)})
		require.Error(t, err)

		var e *errx.Error
		require.True(t, errors.As(err, &e))
		assert.Equal(t, 400, e.HTTPStatus)
	})
}

func TestHandleChat_ConcurrentTurnsSerialized(t *testing.T) {
	provider := &replyProvider{reply: "ok"}
	orch := newTestOrchestrator(t, provider, 20)
	ctx := context.Background()

	first, err := orch.HandleChat(ctx, ChatRequest{Message: "inicio"})
	require.NoError(t, err)

	const turns = 10
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := orch.HandleChat(ctx, ChatRequest{
				Message:   fmt.Sprintf("mensaje %d", i),
				SessionID: first.SessionID,
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	history, err := orch.GetSessionHistory(ctx, first.SessionID)
	require.NoError(t, err)

	// Every turn landed, and the session's turn lock kept each user
	// message paired with its reply.
	require.Len(t, history.Messages, 2*(turns+1))
	seen := make(map[string]int)
	for i, entry := range history.Messages {
		if i%2 == 0 {
			assert.Equal(t, "user", entry.Role)
			seen[entry.Content]++
		} else {
			assert.Equal(t, "assistant", entry.Role)
		}
	}
	for i := 0; i < turns; i++ {
		assert.Equal(t, 1, seen[fmt.Sprintf("mensaje %d", i)])
	}
}

func TestHandleChat_UserIDPrefixedIntoInput(t *testing.T) {
	provider := &replyProvider{reply: "ok"}
	orch := newTestOrchestrator(t, provider, 20)

	_, err := orch.HandleChat(context.Background(), ChatRequest{
		Message:     "quiero una cita",
		UserID:      "10",
		UserContext: map[string]string{"telefono": "+51 999 888 777"},
	})
	require.NoError(t, err)

	call := provider.calls[0]
	userMsg := call[len(call)-1]
	assert.Equal(t, llm.RoleUser, userMsg.Role)
	assert.Contains(t, userMsg.Content, "[ID Usuario: 10]")
	assert.Contains(t, userMsg.Content, "telefono: +51 999 888 777")
	assert.Contains(t, userMsg.Content, "quiero una cita")
}

func TestHandleChat_AgentFailureReturnsFallback(t *testing.T) {
	provider := &replyProvider{err: errors.New("rate limited")}
	orch := newTestOrchestrator(t, provider, 20)

	response, err := orch.HandleChat(context.Background(), ChatRequest{Message: "hola"})
	require.NoError(t, err)

	assert.Contains(t, response.Message, "Lo siento")
	assert.Equal(t, true, response.Metadata["agent_error"])
	assert.NotEmpty(t, response.SessionID)
}

func TestGetSessionHistory_FiltersToolTraffic(t *testing.T) {
	provider := &replyProvider{reply: "respuesta"}
	orch := newTestOrchestrator(t, provider, 20)
	ctx := context.Background()

	response, err := orch.HandleChat(ctx, ChatRequest{Message: "hola"})
	require.NoError(t, err)

	history, err := orch.GetSessionHistory(ctx, response.SessionID)
	require.NoError(t, err)

	require.Len(t, history.Messages, 2)
	assert.Equal(t, "user", history.Messages[0].Role)
	assert.Equal(t, "hola", history.Messages[0].Content)
	assert.Equal(t, "assistant", history.Messages[1].Role)
	assert.Equal(t, "respuesta", history.Messages[1].Content)

	for _, entry := range history.Messages {
		assert.NotEqual(t, "system", entry.Role)
		assert.NotEqual(t, "tool", entry.Role)
	}
}

func TestDeleteSession(t *testing.T) {
	provider := &replyProvider{reply: "ok"}
	orch := newTestOrchestrator(t, provider, 20)
	ctx := context.Background()

	response, err := orch.HandleChat(ctx, ChatRequest{Message: "hola"})
	require.NoError(t, err)

	require.NoError(t, orch.DeleteSession(ctx, response.SessionID))

	_, err = orch.GetSessionHistory(ctx, response.SessionID)
	require.Error(t, err)

	// Deleting again is a no-op.
	assert.NoError(t, orch.DeleteSession(ctx, response.SessionID))
}

func TestDeleteSession_ReleasesTurnLock(t *testing.T) {
	provider := &replyProvider{reply: "ok"}
	orch := newTestOrchestrator(t, provider, 20)
	ctx := context.Background()

	response, err := orch.HandleChat(ctx, ChatRequest{Message: "hola"})
	require.NoError(t, err)

	orch.mu.Lock()
	_, held := orch.sessionLocks[response.SessionID]
	orch.mu.Unlock()
	require.True(t, held)

	require.NoError(t, orch.DeleteSession(ctx, response.SessionID))

	orch.mu.Lock()
	_, held = orch.sessionLocks[response.SessionID]
	orch.mu.Unlock()
	assert.False(t, held)
}

func TestActiveSessionCount(t *testing.T) {
	provider := &replyProvider{reply: "ok"}
	orch := newTestOrchestrator(t, provider, 20)
	ctx := context.Background()

	count, err := orch.ActiveSessionCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = orch.HandleChat(ctx, ChatRequest{Message: "hola"})
	require.NoError(t, err)
	_, err = orch.HandleChat(ctx, ChatRequest{Message: "hola"})
	require.NoError(t, err)

	count, err = orch.ActiveSessionCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestHealth_ReportsUninitializedClient(t *testing.T) {
	repo := memoryinfra.NewInMemorySessionRepository(0)
	t.Cleanup(repo.Stop)

	orch := New(Config{
		SessionService: memorysrv.NewSessionService(repo, 20),
		PromptBuilder:  clinic.NewPromptBuilder(clinic.DefaultProfile()),
	})

	health := orch.Health(context.Background())
	assert.False(t, health.Healthy())
	assert.Equal(t, "not configured", health.Components["openai"])
}

func TestInfo(t *testing.T) {
	orch := newTestOrchestrator(t, &replyProvider{reply: "ok"}, 20)

	info := orch.Info()
	assert.Equal(t, "arludent-assistant", info.Service)
	assert.Equal(t, "gpt-4o-mini", info.Model)
	assert.Equal(t, "Clinica Dental Arludent", info.Clinic)
}
