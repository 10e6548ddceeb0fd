package memoryx

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/arludent/assistant/pkg/ai/llm"
)

// SessionID uniquely identifies a conversation session.
type SessionID string

// NewSessionID generates a new session ID.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// Session is a conversation scope with its own memory.
type Session struct {
	ID        SessionID `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	SystemMsg string    `json:"system_message" db:"system_message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
	IsActive  bool      `json:"is_active" db:"is_active"`
}

// SessionMessage is one stored conversation entry.
type SessionMessage struct {
	ID         int64     `json:"id" db:"id"`
	SessionID  SessionID `json:"session_id" db:"session_id"`
	Role       string    `json:"role" db:"role"`
	Content    string    `json:"content" db:"content"`
	ToolCalls  string    `json:"tool_calls,omitempty" db:"tool_calls"` // JSON serialized
	ToolCallID string    `json:"tool_call_id,omitempty" db:"tool_call_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// SessionWithMessages bundles a session with its ordered messages.
type SessionWithMessages struct {
	Session  Session          `json:"session"`
	Messages []SessionMessage `json:"messages"`
}

// ToLLMMessage converts a stored message back to an llm.Message.
func (sm *SessionMessage) ToLLMMessage() (llm.Message, error) {
	msg := llm.Message{
		Role:       llm.Role(sm.Role),
		Content:    sm.Content,
		ToolCallID: sm.ToolCallID,
	}

	if sm.ToolCalls != "" {
		var toolCalls []llm.ToolCall
		if err := json.Unmarshal([]byte(sm.ToolCalls), &toolCalls); err != nil {
			return msg, ErrMessageSerializationFailed(err)
		}
		msg.ToolCalls = toolCalls
	}

	return msg, nil
}

// FromLLMMessage converts an llm.Message into its stored form.
func FromLLMMessage(sessionID SessionID, msg llm.Message) (SessionMessage, error) {
	sm := SessionMessage{
		SessionID:  sessionID,
		Role:       string(msg.Role),
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
		CreatedAt:  time.Now(),
	}

	if len(msg.ToolCalls) > 0 {
		toolCallsJSON, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return sm, ErrMessageSerializationFailed(err)
		}
		sm.ToolCalls = string(toolCallsJSON)
	}

	return sm, nil
}
