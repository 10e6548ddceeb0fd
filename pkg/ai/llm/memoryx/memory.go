// Package memoryx provides conversational memory for agents: an in-process
// buffer and a session-backed implementation over a pluggable repository.
package memoryx

import "github.com/arludent/assistant/pkg/ai/llm"

// Memory feeds an agent its conversation. Implementations must return the
// system message first, followed by the conversation window in order.
type Memory interface {
	Messages() ([]llm.Message, error)
	Add(message llm.Message) error
	Clear() error
}
