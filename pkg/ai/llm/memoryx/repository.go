package memoryx

import "context"

// SessionRepository persists sessions and their messages.
type SessionRepository interface {
	// Session CRUD
	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID SessionID) (*Session, error)
	GetSessionWithMessages(ctx context.Context, sessionID SessionID) (*SessionWithMessages, error)
	ListUserSessions(ctx context.Context, userID string, limit, offset int) ([]*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	DeleteSession(ctx context.Context, sessionID SessionID) error
	CountActiveSessions(ctx context.Context) (int, error)

	// Message operations
	AddMessage(ctx context.Context, message *SessionMessage) error
	GetMessages(ctx context.Context, sessionID SessionID) ([]SessionMessage, error)
	// GetRecentMessages returns the most recent limit messages in
	// chronological order. limit <= 0 means all.
	GetRecentMessages(ctx context.Context, sessionID SessionID, limit int) ([]SessionMessage, error)
	ClearMessages(ctx context.Context, sessionID SessionID) error
	GetMessageCount(ctx context.Context, sessionID SessionID) (int, error)
}
