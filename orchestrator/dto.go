package orchestrator

import "time"

// ChatRequest is an incoming chat message.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`

	// UserContext carries extra key/value hints from the caller (for
	// example the patient's phone number from the WhatsApp bridge). It is
	// prefixed to the model input, never persisted on its own.
	UserContext map[string]string `json:"user_context,omitempty"`
}

// ChatResponse is the assistant's reply.
type ChatResponse struct {
	Message   string         `json:"message"`
	SessionID string         `json:"session_id"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StreamChunk is one piece of a streamed reply.
type StreamChunk struct {
	Content   string         `json:"content,omitempty"`
	Done      bool           `json:"done"`
	SessionID string         `json:"session_id,omitempty"`
	Error     string         `json:"error,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// HistoryEntry is one conversational message in a session's history.
type HistoryEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionHistory is the client-facing view of a session.
type SessionHistory struct {
	SessionID string         `json:"session_id"`
	UserID    string         `json:"user_id,omitempty"`
	Title     string         `json:"title,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Messages  []HistoryEntry `json:"messages"`
}

// HealthStatus reports the state of the service's dependencies.
type HealthStatus struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Healthy reports whether every component is up.
func (h *HealthStatus) Healthy() bool {
	return h.Status == "ok"
}

// ServiceInfo describes the running service.
type ServiceInfo struct {
	Service     string   `json:"service"`
	Version     string   `json:"version"`
	Environment string   `json:"environment"`
	Model       string   `json:"model"`
	Clinic      string   `json:"clinic"`
	Tools       []string `json:"tools"`
}
