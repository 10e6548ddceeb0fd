package memoryx

import (
	"sync"

	"github.com/arludent/assistant/pkg/ai/llm"
)

// BufferMemory keeps the conversation in process memory. It is safe for
// concurrent use.
type BufferMemory struct {
	mu            sync.RWMutex
	systemMessage llm.Message
	messages      []llm.Message
	maxMessages   int // 0 = unlimited
}

// BufferMemoryOption configures a BufferMemory.
type BufferMemoryOption func(*BufferMemory)

// WithMaxMessages bounds the conversation window. The system message does
// not count against the limit; the oldest messages are dropped first.
func WithMaxMessages(max int) BufferMemoryOption {
	return func(m *BufferMemory) {
		m.maxMessages = max
	}
}

// NewBufferMemory creates a buffer memory seeded with a system message.
func NewBufferMemory(systemMessage llm.Message, opts ...BufferMemoryOption) *BufferMemory {
	memory := &BufferMemory{
		systemMessage: systemMessage,
		messages:      make([]llm.Message, 0),
	}

	for _, opt := range opts {
		opt(memory)
	}

	return memory
}

// Messages returns the system message followed by the conversation window.
func (m *BufferMemory) Messages() ([]llm.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := make([]llm.Message, 0, len(m.messages)+1)
	if m.systemMessage.Content != "" {
		all = append(all, m.systemMessage)
	}
	all = append(all, m.messages...)

	return all, nil
}

// Add appends a message, trimming the oldest entries past the window.
func (m *BufferMemory) Add(message llm.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, message)

	if m.maxMessages > 0 && len(m.messages) > m.maxMessages {
		trim := len(m.messages) - m.maxMessages
		m.messages = m.messages[trim:]
	}

	return nil
}

// Clear drops the conversation but keeps the system message.
func (m *BufferMemory) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = make([]llm.Message, 0)

	return nil
}

// GetSystemMessage returns the current system message.
func (m *BufferMemory) GetSystemMessage() llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.systemMessage
}

// SetSystemMessage replaces the system message.
func (m *BufferMemory) SetSystemMessage(message llm.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.systemMessage = message
}

// Count returns the number of conversation messages, excluding the system
// message.
func (m *BufferMemory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.messages)
}

// GetLastN returns a copy of the last n conversation messages.
func (m *BufferMemory) GetLastN(n int) []llm.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || len(m.messages) == 0 {
		return []llm.Message{}
	}
	if n > len(m.messages) {
		n = len(m.messages)
	}

	result := make([]llm.Message, n)
	copy(result, m.messages[len(m.messages)-n:])
	return result
}
