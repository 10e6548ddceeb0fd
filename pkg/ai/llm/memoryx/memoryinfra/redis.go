package memoryinfra

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/arludent/assistant/pkg/ai/llm/memoryx"
	"github.com/arludent/assistant/pkg/logx"
)

const redisKeyPrefix = "session:"

// redisRecord is the stored shape of a session: metadata plus messages in
// one JSON value so reads and writes stay single-key.
type redisRecord struct {
	Session  memoryx.Session          `json:"session"`
	Messages []memoryx.SessionMessage `json:"messages"`
	NextID   int64                    `json:"next_id"`
}

// RedisSessionRepository stores sessions in Redis with a sliding TTL.
type RedisSessionRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionRepository creates the repository. ttl <= 0 means keys
// never expire.
func NewRedisSessionRepository(client *redis.Client, ttl time.Duration) *RedisSessionRepository {
	logx.WithField("ttl", ttl).Info("Redis session repository initialized")
	return &RedisSessionRepository{client: client, ttl: ttl}
}

func sessionKey(id memoryx.SessionID) string {
	return redisKeyPrefix + string(id)
}

func (r *RedisSessionRepository) load(ctx context.Context, sessionID memoryx.SessionID) (*redisRecord, error) {
	data, err := r.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, memoryx.ErrSessionNotFound()
	}
	if err != nil {
		logx.WithError(err).Error("Failed to read session from redis")
		return nil, err
	}

	var record redisRecord
	if err := json.Unmarshal(data, &record); err != nil {
		logx.WithError(err).Error("Failed to decode session record")
		return nil, err
	}

	return &record, nil
}

func (r *RedisSessionRepository) save(ctx context.Context, record *redisRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, sessionKey(record.Session.ID), data, r.ttl).Err(); err != nil {
		logx.WithError(err).Error("Failed to write session to redis")
		return err
	}

	return nil
}

func (r *RedisSessionRepository) CreateSession(ctx context.Context, session *memoryx.Session) error {
	record := &redisRecord{
		Session: *session,
		NextID:  1,
	}

	logx.WithFields(logx.Fields{
		"session_id": session.ID,
		"user_id":    session.UserID,
	}).Debug("Creating session in redis")

	return r.save(ctx, record)
}

func (r *RedisSessionRepository) GetSession(ctx context.Context, sessionID memoryx.SessionID) (*memoryx.Session, error) {
	record, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session := record.Session
	return &session, nil
}

func (r *RedisSessionRepository) GetSessionWithMessages(ctx context.Context, sessionID memoryx.SessionID) (*memoryx.SessionWithMessages, error) {
	record, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	return &memoryx.SessionWithMessages{
		Session:  record.Session,
		Messages: record.Messages,
	}, nil
}

func (r *RedisSessionRepository) ListUserSessions(ctx context.Context, userID string, limit, offset int) ([]*memoryx.Session, error) {
	var sessions []*memoryx.Session

	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var record redisRecord
		if err := json.Unmarshal(data, &record); err != nil {
			logx.WithField("key", iter.Val()).WithError(err).Warn("Skipping undecodable session record")
			continue
		}

		if record.Session.UserID == userID && record.Session.IsActive {
			session := record.Session
			sessions = append(sessions, &session)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
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

func (r *RedisSessionRepository) UpdateSession(ctx context.Context, session *memoryx.Session) error {
	record, err := r.load(ctx, session.ID)
	if err != nil {
		return err
	}

	record.Session = *session
	return r.save(ctx, record)
}

func (r *RedisSessionRepository) DeleteSession(ctx context.Context, sessionID memoryx.SessionID) error {
	logx.WithField("session_id", sessionID).Debug("Deleting session from redis")
	return r.client.Del(ctx, sessionKey(sessionID)).Err()
}

func (r *RedisSessionRepository) CountActiveSessions(ctx context.Context) (int, error) {
	count := 0
	iter := r.client.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RedisSessionRepository) AddMessage(ctx context.Context, message *memoryx.SessionMessage) error {
	record, err := r.load(ctx, message.SessionID)
	if err != nil {
		return err
	}

	message.ID = record.NextID
	record.NextID++
	record.Messages = append(record.Messages, *message)
	record.Session.UpdatedAt = message.CreatedAt

	return r.save(ctx, record)
}

func (r *RedisSessionRepository) GetMessages(ctx context.Context, sessionID memoryx.SessionID) ([]memoryx.SessionMessage, error) {
	return r.GetRecentMessages(ctx, sessionID, 0)
}

func (r *RedisSessionRepository) GetRecentMessages(ctx context.Context, sessionID memoryx.SessionID, limit int) ([]memoryx.SessionMessage, error) {
	record, err := r.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	messages := record.Messages
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	result := make([]memoryx.SessionMessage, len(messages))
	copy(result, messages)
	return result, nil
}

func (r *RedisSessionRepository) ClearMessages(ctx context.Context, sessionID memoryx.SessionID) error {
	record, err := r.load(ctx, sessionID)
	if err != nil {
		return err
	}

	record.Messages = nil
	return r.save(ctx, record)
}

func (r *RedisSessionRepository) GetMessageCount(ctx context.Context, sessionID memoryx.SessionID) (int, error) {
	record, err := r.load(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	return len(record.Messages), nil
}
