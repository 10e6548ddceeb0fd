// Package memoryinfra contains the SessionRepository drivers: in-process
// map, Redis and Postgres.
package memoryinfra

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/arludent/assistant/pkg/ai/llm/memoryx"
	"github.com/arludent/assistant/pkg/logx"
)

type sessionEntry struct {
	session  memoryx.Session
	messages []memoryx.SessionMessage
	nextID   int64
	lastSeen time.Time
}

// InMemorySessionRepository keeps sessions in a map. Idle sessions are
// evicted by a janitor goroutine after the TTL. Safe for concurrent use.
type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[memoryx.SessionID]*sessionEntry
	ttl      time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewInMemorySessionRepository creates the repository and starts the
// janitor. ttl <= 0 disables eviction.
func NewInMemorySessionRepository(ttl time.Duration) *InMemorySessionRepository {
	r := &InMemorySessionRepository{
		sessions: make(map[memoryx.SessionID]*sessionEntry),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}

	if ttl > 0 {
		go r.janitor()
	}

	logx.WithField("ttl", ttl).Info("In-memory session repository initialized")
	return r
}

// Stop shuts down the janitor. Idempotent.
func (r *InMemorySessionRepository) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *InMemorySessionRepository) janitor() {
	interval := r.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.evictExpired()
		}
	}
}

func (r *InMemorySessionRepository) evictExpired() {
	cutoff := time.Now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for id, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			evicted++
		}
	}

	if evicted > 0 {
		logx.WithFields(logx.Fields{
			"evicted":   evicted,
			"remaining": len(r.sessions),
		}).Info("Expired sessions evicted")
	}
}

func (r *InMemorySessionRepository) CreateSession(ctx context.Context, session *memoryx.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.ID] = &sessionEntry{
		session:  *session,
		nextID:   1,
		lastSeen: time.Now(),
	}

	logx.WithFields(logx.Fields{
		"session_id": session.ID,
		"user_id":    session.UserID,
	}).Debug("Session created")

	return nil
}

func (r *InMemorySessionRepository) GetSession(ctx context.Context, sessionID memoryx.SessionID) (*memoryx.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return nil, memoryx.ErrSessionNotFound()
	}

	session := entry.session
	return &session, nil
}

func (r *InMemorySessionRepository) GetSessionWithMessages(ctx context.Context, sessionID memoryx.SessionID) (*memoryx.SessionWithMessages, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return nil, memoryx.ErrSessionNotFound()
	}

	messages := make([]memoryx.SessionMessage, len(entry.messages))
	copy(messages, entry.messages)

	return &memoryx.SessionWithMessages{
		Session:  entry.session,
		Messages: messages,
	}, nil
}

func (r *InMemorySessionRepository) ListUserSessions(ctx context.Context, userID string, limit, offset int) ([]*memoryx.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var sessions []*memoryx.Session
	for _, entry := range r.sessions {
		if entry.session.UserID == userID && entry.session.IsActive {
			session := entry.session
			sessions = append(sessions, &session)
		}
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})

	if offset >= len(sessions) {
		return []*memoryx.Session{}, nil
	}
	sessions = sessions[offset:]
	if limit > 0 && limit < len(sessions) {
		sessions = sessions[:limit]
	}

	return sessions, nil
}

func (r *InMemorySessionRepository) UpdateSession(ctx context.Context, session *memoryx.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[session.ID]
	if !ok {
		return memoryx.ErrSessionNotFound()
	}

	entry.session = *session
	entry.lastSeen = time.Now()
	return nil
}

func (r *InMemorySessionRepository) DeleteSession(ctx context.Context, sessionID memoryx.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)

	logx.WithField("session_id", sessionID).Debug("Session deleted")
	return nil
}

func (r *InMemorySessionRepository) CountActiveSessions(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entry := range r.sessions {
		if entry.session.IsActive {
			count++
		}
	}
	return count, nil
}

func (r *InMemorySessionRepository) AddMessage(ctx context.Context, message *memoryx.SessionMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[message.SessionID]
	if !ok {
		return memoryx.ErrSessionNotFound()
	}

	message.ID = entry.nextID
	entry.nextID++
	entry.messages = append(entry.messages, *message)
	entry.session.UpdatedAt = message.CreatedAt
	entry.lastSeen = time.Now()

	return nil
}

func (r *InMemorySessionRepository) GetMessages(ctx context.Context, sessionID memoryx.SessionID) ([]memoryx.SessionMessage, error) {
	return r.GetRecentMessages(ctx, sessionID, 0)
}

func (r *InMemorySessionRepository) GetRecentMessages(ctx context.Context, sessionID memoryx.SessionID, limit int) ([]memoryx.SessionMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return nil, memoryx.ErrSessionNotFound()
	}

	messages := entry.messages
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	result := make([]memoryx.SessionMessage, len(messages))
	copy(result, messages)
	return result, nil
}

func (r *InMemorySessionRepository) ClearMessages(ctx context.Context, sessionID memoryx.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return memoryx.ErrSessionNotFound()
	}

	entry.messages = nil
	entry.lastSeen = time.Now()
	return nil
}

func (r *InMemorySessionRepository) GetMessageCount(ctx context.Context, sessionID memoryx.SessionID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.sessions[sessionID]
	if !ok {
		return 0, memoryx.ErrSessionNotFound()
	}

	return len(entry.messages), nil
}
