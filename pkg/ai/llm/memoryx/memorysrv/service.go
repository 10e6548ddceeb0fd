// Package memorysrv is the service layer over the session repository.
package memorysrv

import (
	"context"
	"time"

	"github.com/arludent/assistant/pkg/ai/llm"
	"github.com/arludent/assistant/pkg/ai/llm/memoryx"
	"github.com/arludent/assistant/pkg/logx"
)

type SessionService struct {
	repository memoryx.SessionRepository
	windowSize int
}

// NewSessionService creates the service. windowSize bounds the
// conversation window handed to the agent (0 = unbounded).
func NewSessionService(repo memoryx.SessionRepository, windowSize int) *SessionService {
	logx.WithField("window_size", windowSize).Info("Session service initialized")
	return &SessionService{repository: repo, windowSize: windowSize}
}

// CreateSession creates a new chat session. The system message is stored
// on the session record, not as a conversation message, so it never falls
// out of the window.
func (s *SessionService) CreateSession(ctx context.Context, userID, title string, systemMessage llm.Message) (*memoryx.Session, error) {
	logx.WithFields(logx.Fields{
		"user_id": userID,
		"title":   title,
	}).Info("Creating new session")

	now := time.Now()
	session := &memoryx.Session{
		ID:        memoryx.NewSessionID(),
		UserID:    userID,
		Title:     title,
		SystemMsg: systemMessage.Content,
		CreatedAt: now,
		UpdatedAt: now,
		IsActive:  true,
	}

	if err := s.repository.CreateSession(ctx, session); err != nil {
		logx.WithError(err).Error("Failed to create session")
		return nil, err
	}

	logx.WithField("session_id", session.ID).Info("Session created")
	return session, nil
}

// GetSessionMemory returns a Memory bound to the session.
func (s *SessionService) GetSessionMemory(ctx context.Context, sessionID memoryx.SessionID) (memoryx.Memory, error) {
	session, err := s.repository.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.IsActive {
		logx.WithField("session_id", sessionID).Warn("Attempting to use inactive session")
		return nil, memoryx.ErrSessionInactive()
	}

	return memoryx.NewSessionMemory(ctx, sessionID, s.repository,
		memoryx.WithWindowSize(s.windowSize)), nil
}

// UpdateSystemMessage replaces the session's system message. Called at the
// start of every chat turn so date-sensitive prompt content stays fresh.
func (s *SessionService) UpdateSystemMessage(ctx context.Context, sessionID memoryx.SessionID, systemMessage llm.Message) error {
	session, err := s.repository.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.SystemMsg = systemMessage.Content
	session.UpdatedAt = time.Now()

	return s.repository.UpdateSession(ctx, session)
}

// ListUserSessions lists a user's active sessions.
func (s *SessionService) ListUserSessions(ctx context.Context, userID string, limit, offset int) ([]*memoryx.Session, error) {
	return s.repository.ListUserSessions(ctx, userID, limit, offset)
}

// GetSession retrieves a session by ID.
func (s *SessionService) GetSession(ctx context.Context, sessionID memoryx.SessionID) (*memoryx.Session, error) {
	return s.repository.GetSession(ctx, sessionID)
}

// GetSessionWithMessages retrieves a session with its full message log.
func (s *SessionService) GetSessionWithMessages(ctx context.Context, sessionID memoryx.SessionID) (*memoryx.SessionWithMessages, error) {
	return s.repository.GetSessionWithMessages(ctx, sessionID)
}

// UpdateSessionTitle renames a session.
func (s *SessionService) UpdateSessionTitle(ctx context.Context, sessionID memoryx.SessionID, title string) error {
	session, err := s.repository.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}

	session.Title = title
	session.UpdatedAt = time.Now()

	return s.repository.UpdateSession(ctx, session)
}

// DeleteSession removes a session.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID memoryx.SessionID) error {
	logx.WithField("session_id", sessionID).Info("Deleting session")
	return s.repository.DeleteSession(ctx, sessionID)
}

// ClearSessionMessages drops a session's conversation messages.
func (s *SessionService) ClearSessionMessages(ctx context.Context, sessionID memoryx.SessionID) error {
	return s.repository.ClearMessages(ctx, sessionID)
}

// ActiveSessionCount reports how many sessions are live.
func (s *SessionService) ActiveSessionCount(ctx context.Context) (int, error) {
	return s.repository.CountActiveSessions(ctx)
}
