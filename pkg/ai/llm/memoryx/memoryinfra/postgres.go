package memoryinfra

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/arludent/assistant/pkg/ai/llm/memoryx"
	"github.com/arludent/assistant/pkg/logx"
)

// PostgresSessionRepository persists sessions in the sessions and
// session_messages tables.
type PostgresSessionRepository struct {
	db *sqlx.DB
}

func NewPostgresSessionRepository(db *sqlx.DB) *PostgresSessionRepository {
	logx.Info("PostgreSQL session repository initialized")
	return &PostgresSessionRepository{db: db}
}

func (r *PostgresSessionRepository) CreateSession(ctx context.Context, session *memoryx.Session) error {
	executor := r.getExecutor(ctx)

	query := `
        INSERT INTO sessions (id, user_id, title, system_message, created_at, updated_at, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	logx.WithFields(logx.Fields{
		"session_id": session.ID,
		"user_id":    session.UserID,
	}).Debug("Creating session")

	_, err := executor.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Title,
		session.SystemMsg,
		session.CreatedAt,
		session.UpdatedAt,
		session.IsActive,
	)

	if err != nil {
		logx.WithError(err).Error("Failed to create session")
		return err
	}

	return nil
}

func (r *PostgresSessionRepository) GetSession(ctx context.Context, sessionID memoryx.SessionID) (*memoryx.Session, error) {
	executor := r.getExecutor(ctx)

	// Soft-deleted rows stay in the table; they must look deleted to
	// callers, same as the in-memory and Redis drivers.
	query := `SELECT * FROM sessions WHERE id = $1 AND is_active = true`

	var session memoryx.Session
	err := sqlx.GetContext(ctx, executor, &session, query, sessionID)
	if err == sql.ErrNoRows {
		logx.WithField("session_id", sessionID).Warn("Session not found")
		return nil, memoryx.ErrSessionNotFound()
	}
	if err != nil {
		logx.WithError(err).Error("Failed to get session")
		return nil, err
	}

	return &session, nil
}

func (r *PostgresSessionRepository) GetSessionWithMessages(ctx context.Context, sessionID memoryx.SessionID) (*memoryx.SessionWithMessages, error) {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages, err := r.GetMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &memoryx.SessionWithMessages{
		Session:  *session,
		Messages: messages,
	}, nil
}

func (r *PostgresSessionRepository) ListUserSessions(ctx context.Context, userID string, limit, offset int) ([]*memoryx.Session, error) {
	executor := r.getExecutor(ctx)

	query := `
        SELECT * FROM sessions
        WHERE user_id = $1 AND is_active = true
        ORDER BY updated_at DESC
        LIMIT $2 OFFSET $3
    `

	var sessions []*memoryx.Session
	err := sqlx.SelectContext(ctx, executor, &sessions, query, userID, limit, offset)
	if err != nil {
		logx.WithError(err).Error("Failed to list user sessions")
		return nil, err
	}

	return sessions, nil
}

func (r *PostgresSessionRepository) UpdateSession(ctx context.Context, session *memoryx.Session) error {
	executor := r.getExecutor(ctx)

	query := `
        UPDATE sessions
        SET title = $1, system_message = $2, updated_at = $3, is_active = $4
        WHERE id = $5
    `

	_, err := executor.ExecContext(ctx, query,
		session.Title,
		session.SystemMsg,
		session.UpdatedAt,
		session.IsActive,
		session.ID,
	)

	if err != nil {
		logx.WithError(err).Error("Failed to update session")
		return err
	}

	return nil
}

// DeleteSession soft deletes a session.
func (r *PostgresSessionRepository) DeleteSession(ctx context.Context, sessionID memoryx.SessionID) error {
	executor := r.getExecutor(ctx)

	query := `UPDATE sessions SET is_active = false WHERE id = $1`

	logx.WithField("session_id", sessionID).Info("Deleting session")

	_, err := executor.ExecContext(ctx, query, sessionID)
	if err != nil {
		logx.WithError(err).Error("Failed to delete session")
		return err
	}

	return nil
}

func (r *PostgresSessionRepository) CountActiveSessions(ctx context.Context) (int, error) {
	executor := r.getExecutor(ctx)

	query := `SELECT COUNT(*) FROM sessions WHERE is_active = true`

	var count int
	err := executor.QueryRowxContext(ctx, query).Scan(&count)
	return count, err
}

func (r *PostgresSessionRepository) AddMessage(ctx context.Context, message *memoryx.SessionMessage) error {
	executor := r.getExecutor(ctx)

	query := `
        INSERT INTO session_messages (session_id, role, content, tool_calls, tool_call_id, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `

	err := executor.QueryRowxContext(ctx, query,
		message.SessionID,
		message.Role,
		message.Content,
		message.ToolCalls,
		message.ToolCallID,
		message.CreatedAt,
	).Scan(&message.ID)

	if err != nil {
		logx.WithError(err).Error("Failed to add message")
		return err
	}

	updateQuery := `UPDATE sessions SET updated_at = $1 WHERE id = $2`
	_, _ = executor.ExecContext(ctx, updateQuery, message.CreatedAt, message.SessionID)

	return nil
}

func (r *PostgresSessionRepository) GetMessages(ctx context.Context, sessionID memoryx.SessionID) ([]memoryx.SessionMessage, error) {
	executor := r.getExecutor(ctx)

	query := `SELECT * FROM session_messages WHERE session_id = $1 ORDER BY id ASC`

	var messages []memoryx.SessionMessage
	err := sqlx.SelectContext(ctx, executor, &messages, query, sessionID)
	if err != nil {
		logx.WithError(err).Error("Failed to get messages")
		return nil, err
	}

	return messages, nil
}

func (r *PostgresSessionRepository) GetRecentMessages(ctx context.Context, sessionID memoryx.SessionID, limit int) ([]memoryx.SessionMessage, error) {
	if limit <= 0 {
		return r.GetMessages(ctx, sessionID)
	}

	executor := r.getExecutor(ctx)

	query := `
        SELECT * FROM (
            SELECT * FROM session_messages
            WHERE session_id = $1
            ORDER BY id DESC
            LIMIT $2
        ) recent ORDER BY id ASC
    `

	var messages []memoryx.SessionMessage
	err := sqlx.SelectContext(ctx, executor, &messages, query, sessionID, limit)
	if err != nil {
		logx.WithError(err).Error("Failed to get recent messages")
		return nil, err
	}

	return messages, nil
}

func (r *PostgresSessionRepository) ClearMessages(ctx context.Context, sessionID memoryx.SessionID) error {
	executor := r.getExecutor(ctx)

	query := `DELETE FROM session_messages WHERE session_id = $1`

	_, err := executor.ExecContext(ctx, query, sessionID)
	if err != nil {
		logx.WithError(err).Error("Failed to clear messages")
		return err
	}

	return nil
}

func (r *PostgresSessionRepository) GetMessageCount(ctx context.Context, sessionID memoryx.SessionID) (int, error) {
	executor := r.getExecutor(ctx)

	query := `SELECT COUNT(*) FROM session_messages WHERE session_id = $1`

	var count int
	err := executor.QueryRowxContext(ctx, query, sessionID).Scan(&count)
	return count, err
}

// getExecutor returns the transaction from context if present, otherwise
// the pool.
func (r *PostgresSessionRepository) getExecutor(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return r.db
}

type txKey struct{}

// WithTx returns a context carrying the transaction for repository calls.
func WithTx(ctx context.Context, tx *sqlx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}
