// Package orchestrator ties the chat pipeline together: session memory,
// system prompt, tool registry and the agent loop.
package orchestrator

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/arludent/assistant/backend"
	"github.com/arludent/assistant/clinic"
	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/ai/llm/agentx"
	"github.com/arludent/assistant/pkg/ai/llm/memoryx"
	"github.com/arludent/assistant/pkg/ai/llm/memoryx/memorysrv"
	"github.com/arludent/assistant/pkg/ai/llm/toolx"
	"github.com/arludent/assistant/pkg/logx"
)

// Version is reported by the info endpoint.
const Version = "1.0.0"

// maxMessageLength bounds a single user message.
const maxMessageLength = 1000

// fallbackMessage is returned when the agent fails so the caller always
// gets a usable reply.
const fallbackMessage = "Lo siento, tuve un problema al procesar tu mensaje. " +
	"Por favor intenta de nuevo en unos momentos o comunicate con la clinica al telefono de recepcion."

// Orchestrator handles the full chat flow.
type Orchestrator struct {
	llmClient      llm.Client
	sessionService *memorysrv.SessionService
	toolRegistry   *toolx.ToolxClient
	promptBuilder  *clinic.PromptBuilder
	backendClient  *backend.Client

	model         string
	temperature   float64
	maxTokens     int
	maxIterations int
	environment   string

	mu           sync.Mutex
	sessionLocks map[string]*sync.Mutex
}

// Config holds orchestrator configuration.
type Config struct {
	LLMClient      llm.Client
	SessionService *memorysrv.SessionService
	ToolRegistry   *toolx.ToolxClient
	PromptBuilder  *clinic.PromptBuilder
	BackendClient  *backend.Client

	Model         string
	Temperature   float64
	MaxTokens     int
	MaxIterations int
	Environment   string
}

// New creates an orchestrator.
func New(config Config) *Orchestrator {
	return &Orchestrator{
		llmClient:      config.LLMClient,
		sessionService: config.SessionService,
		toolRegistry:   config.ToolRegistry,
		promptBuilder:  config.PromptBuilder,
		backendClient:  config.BackendClient,
		model:          config.Model,
		temperature:    config.Temperature,
		maxTokens:      config.MaxTokens,
		maxIterations:  config.MaxIterations,
		environment:    config.Environment,
		sessionLocks:   make(map[string]*sync.Mutex),
	}
}

// HandleChat processes a chat request and returns the assistant's reply.
// Turns on the same session are serialized so concurrent messages cannot
// interleave their tool rounds.
func (o *Orchestrator) HandleChat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := o.validateRequest(req); err != nil {
		return nil, err
	}

	memory, sessionID, created, err := o.getOrCreateMemory(ctx, req)
	if err != nil {
		return nil, err
	}

	unlock := o.lockSession(sessionID)
	defer unlock()

	agent := o.createAgent(memory)
	input := o.buildInput(req)

	response, err := agent.Run(ctx, input)
	if err != nil {
		// The caller still gets a reply; the failure is recorded in the
		// metadata and the user message stays in the session.
		logx.WithFields(logx.Fields{
			"session_id": sessionID,
		}).WithError(err).Error("Agent execution failed, returning fallback")

		return &ChatResponse{
			Message:   fallbackMessage,
			SessionID: sessionID,
			Timestamp: time.Now().UTC(),
			Metadata: map[string]any{
				"agent_error":     true,
				"session_created": created,
			},
		}, nil
	}

	logx.WithFields(logx.Fields{
		"session_id":      sessionID,
		"response_length": len(response),
	}).Info("Chat turn completed")

	return &ChatResponse{
		Message:   response,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
		Metadata: map[string]any{
			"session_created": created,
		},
	}, nil
}

// HandleChatStream processes a chat request, pushing the reply to
// streamHandler as it is generated.
func (o *Orchestrator) HandleChatStream(ctx context.Context, req ChatRequest, streamHandler func(chunk StreamChunk)) error {
	if err := o.validateRequest(req); err != nil {
		streamHandler(StreamChunk{Error: err.Error(), Done: true})
		return err
	}

	memory, sessionID, created, err := o.getOrCreateMemory(ctx, req)
	if err != nil {
		streamHandler(StreamChunk{Error: err.Error(), Done: true})
		return err
	}

	unlock := o.lockSession(sessionID)
	defer unlock()

	agent := o.createAgent(memory)
	input := o.buildInput(req)

	err = agent.StreamWithTools(ctx, input, func(chunk string) {
		streamHandler(StreamChunk{Content: chunk})
	})
	if err != nil {
		logx.WithField("session_id", sessionID).WithError(err).Error("Streaming chat failed")
		streamHandler(StreamChunk{Error: err.Error(), Done: true})
		return NewAgentExecutionFailedError(err)
	}

	streamHandler(StreamChunk{
		Done:      true,
		SessionID: sessionID,
		Metadata: map[string]any{
			"session_created": created,
		},
	})
	return nil
}

// getOrCreateMemory resolves the session for the request. An unknown or
// missing session ID starts a fresh session; an existing one gets its
// system prompt rebuilt so the current date stays accurate.
func (o *Orchestrator) getOrCreateMemory(ctx context.Context, req ChatRequest) (memoryx.Memory, string, bool, error) {
	if o.sessionService == nil {
		return nil, "", false, NewSessionServiceNotConfiguredError()
	}

	systemMsg := llm.NewSystemMessage(o.promptBuilder.Build(time.Now()))

	if req.SessionID != "" {
		sessionID := memoryx.SessionID(req.SessionID)

		if err := o.sessionService.UpdateSystemMessage(ctx, sessionID, systemMsg); err == nil {
			memory, err := o.sessionService.GetSessionMemory(ctx, sessionID)
			if err != nil {
				logx.WithError(err).Error("Failed to get session memory")
				return nil, "", false, err
			}
			return memory, string(sessionID), false, nil
		}

		logx.WithField("session_id", req.SessionID).Info("Unknown session ID, starting a new session")
	}

	userID := req.UserID
	if userID == "" {
		userID = "guest"
	}

	session, err := o.sessionService.CreateSession(ctx, userID, "Chat con asistente", systemMsg)
	if err != nil {
		logx.WithError(err).Error("Failed to create session")
		return nil, "", false, err
	}

	memory, err := o.sessionService.GetSessionMemory(ctx, session.ID)
	if err != nil {
		return nil, "", false, err
	}

	return memory, string(session.ID), true, nil
}

// createAgent builds the agent for one chat turn.
func (o *Orchestrator) createAgent(memory memoryx.Memory) *agentx.Agent {
	options := []agentx.AgentOption{
		agentx.WithTools(o.toolRegistry),
		agentx.WithOptions(
			llm.WithModel(o.model),
			llm.WithTemperature(o.temperature),
			llm.WithMaxTokens(o.maxTokens),
		),
	}
	if o.maxIterations > 0 {
		options = append(options, agentx.WithMaxTotalIterations(o.maxIterations))
	}

	return agentx.New(o.llmClient, memory, options...)
}

// buildInput prefixes the user message with the caller's identity and
// context so the model can pass them to tools.
func (o *Orchestrator) buildInput(req ChatRequest) string {
	var sb strings.Builder

	if len(req.UserContext) > 0 {
		sb.WriteString("Contexto:\n")
		for key, value := range req.UserContext {
			sb.WriteString(key)
			sb.WriteString(": ")
			sb.WriteString(value)
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	if req.UserID != "" {
		sb.WriteString("[ID Usuario: ")
		sb.WriteString(req.UserID)
		sb.WriteString("]\n")
	}

	sb.WriteString(strings.TrimSpace(req.Message))
	return sb.String()
}

// validateRequest validates the incoming request. The length limit is in
// characters, not bytes, so accented text is not penalized.
func (o *Orchestrator) validateRequest(req ChatRequest) error {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return NewMissingMessageError()
	}
	if length := utf8.RuneCountInString(message); length > maxMessageLength {
		return NewMessageTooLongError(length, maxMessageLength)
	}
	return nil
}

// lockSession serializes turns on a session. The returned func releases
// the lock.
func (o *Orchestrator) lockSession(sessionID string) func() {
	o.mu.Lock()
	lock, ok := o.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		o.sessionLocks[sessionID] = lock
	}
	o.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// GetSessionHistory returns the client-facing view of a session: the
// user and assistant messages, without tool traffic.
func (o *Orchestrator) GetSessionHistory(ctx context.Context, sessionID string) (*SessionHistory, error) {
	if o.sessionService == nil {
		return nil, NewSessionServiceNotConfiguredError()
	}

	swm, err := o.sessionService.GetSessionWithMessages(ctx, memoryx.SessionID(sessionID))
	if err != nil {
		return nil, err
	}

	history := &SessionHistory{
		SessionID: string(swm.Session.ID),
		UserID:    swm.Session.UserID,
		Title:     swm.Session.Title,
		CreatedAt: swm.Session.CreatedAt,
		UpdatedAt: swm.Session.UpdatedAt,
		Messages:  make([]HistoryEntry, 0, len(swm.Messages)),
	}

	for _, msg := range swm.Messages {
		role := llm.Role(msg.Role)
		if role != llm.RoleUser && role != llm.RoleAssistant {
			continue
		}
		if msg.Content == "" {
			// Assistant messages that only carried tool calls.
			continue
		}
		history.Messages = append(history.Messages, HistoryEntry{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt,
		})
	}

	return history, nil
}

// DeleteSession removes a session and its messages, and drops the
// session's turn lock so the map does not grow for the process lifetime.
func (o *Orchestrator) DeleteSession(ctx context.Context, sessionID string) error {
	if o.sessionService == nil {
		return NewSessionServiceNotConfiguredError()
	}

	if err := o.sessionService.DeleteSession(ctx, memoryx.SessionID(sessionID)); err != nil {
		return err
	}

	o.mu.Lock()
	delete(o.sessionLocks, sessionID)
	o.mu.Unlock()

	return nil
}

// ListUserSessions lists a user's sessions.
func (o *Orchestrator) ListUserSessions(ctx context.Context, userID string, limit, offset int) ([]*memoryx.Session, error) {
	if o.sessionService == nil {
		return nil, NewSessionServiceNotConfiguredError()
	}
	return o.sessionService.ListUserSessions(ctx, userID, limit, offset)
}

// ActiveSessionCount reports how many sessions are live.
func (o *Orchestrator) ActiveSessionCount(ctx context.Context) (int, error) {
	if o.sessionService == nil {
		return 0, NewSessionServiceNotConfiguredError()
	}
	return o.sessionService.ActiveSessionCount(ctx)
}

// Health checks the orchestrator's dependencies.
func (o *Orchestrator) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Status:     "ok",
		Components: make(map[string]string),
		Timestamp:  time.Now().UTC(),
	}

	if o.llmClient == (llm.Client{}) {
		status.Components["openai"] = "not configured"
		status.Status = "degraded"
	} else {
		status.Components["openai"] = "configured"
	}

	if o.backendClient == nil {
		status.Components["backend"] = "not configured"
		status.Status = "degraded"
	} else if err := o.backendClient.Health(ctx); err != nil {
		status.Components["backend"] = "unreachable"
		status.Status = "degraded"
	} else {
		status.Components["backend"] = "ok"
	}

	if o.sessionService == nil {
		status.Components["sessions"] = "not configured"
		status.Status = "degraded"
	} else {
		status.Components["sessions"] = "ok"
	}

	return status
}

// Info describes the running service.
func (o *Orchestrator) Info() *ServiceInfo {
	info := &ServiceInfo{
		Service:     "arludent-assistant",
		Version:     Version,
		Environment: o.environment,
		Model:       o.model,
	}
	if o.promptBuilder != nil {
		info.Clinic = o.promptBuilder.Profile().Name
	}
	if o.toolRegistry != nil {
		info.Tools = o.toolRegistry.Names()
	}
	return info
}
