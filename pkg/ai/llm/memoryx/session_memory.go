package memoryx

import (
	"context"

	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/logx"
)

// SessionMemory is Memory backed by a SessionRepository. The session's
// system message is always first; the conversation window is bounded to
// windowSize messages (0 = unbounded).
type SessionMemory struct {
	sessionID  SessionID
	repository SessionRepository
	windowSize int
	ctx        context.Context
}

// SessionMemoryOption configures a SessionMemory.
type SessionMemoryOption func(*SessionMemory)

// WithWindowSize bounds how many stored messages feed the model.
func WithWindowSize(n int) SessionMemoryOption {
	return func(m *SessionMemory) {
		m.windowSize = n
	}
}

// NewSessionMemory creates memory bound to a session.
func NewSessionMemory(ctx context.Context, sessionID SessionID, repo SessionRepository, opts ...SessionMemoryOption) Memory {
	logx.WithField("session_id", sessionID).Debug("Creating session memory")
	m := &SessionMemory{
		sessionID:  sessionID,
		repository: repo,
		ctx:        ctx,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Messages returns the session's system message followed by the recent
// conversation window.
func (m *SessionMemory) Messages() ([]llm.Message, error) {
	session, err := m.repository.GetSession(m.ctx, m.sessionID)
	if err != nil {
		logx.WithError(err).Error("Failed to get session")
		return nil, err
	}

	stored, err := m.repository.GetRecentMessages(m.ctx, m.sessionID, m.windowSize)
	if err != nil {
		logx.WithError(err).Error("Failed to get messages from repository")
		return nil, err
	}

	messages := make([]llm.Message, 0, len(stored)+1)
	if session.SystemMsg != "" {
		messages = append(messages, llm.NewSystemMessage(session.SystemMsg))
	}

	for _, sm := range stored {
		msg, err := sm.ToLLMMessage()
		if err != nil {
			logx.WithError(err).Warn("Skipping undecodable session message")
			continue
		}
		messages = append(messages, msg)
	}

	logx.WithFields(logx.Fields{
		"session_id":    m.sessionID,
		"message_count": len(messages),
	}).Debug("Messages retrieved from session")

	return messages, nil
}

// Add persists a message to the session.
func (m *SessionMemory) Add(message llm.Message) error {
	logx.WithFields(logx.Fields{
		"session_id": m.sessionID,
		"role":       message.Role,
	}).Debug("Adding message to session")

	sessionMsg, err := FromLLMMessage(m.sessionID, message)
	if err != nil {
		logx.WithError(err).Error("Failed to convert message for storage")
		return err
	}

	return m.repository.AddMessage(m.ctx, &sessionMsg)
}

// Clear removes the session's conversation messages. The system message
// lives on the session record and survives.
func (m *SessionMemory) Clear() error {
	logx.WithField("session_id", m.sessionID).Info("Clearing session messages")
	return m.repository.ClearMessages(m.ctx, m.sessionID)
}

// GetSessionID returns the bound session ID.
func (m *SessionMemory) GetSessionID() SessionID {
	return m.sessionID
}
