package orchestrator

import (
	"net/http"

	"github.com/arludent/assistant/pkg/errx"
)

var errRegistry = errx.NewRegistry("ORCHESTRATOR")

var (
	ErrCodeMissingMessage = errRegistry.Register(
		"MISSING_MESSAGE",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Message is required",
	)

	ErrCodeMessageTooLong = errRegistry.Register(
		"MESSAGE_TOO_LONG",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Message exceeds the maximum length",
	)

	ErrCodeAgentExecutionFailed = errRegistry.Register(
		"AGENT_EXECUTION_FAILED",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Agent execution failed",
	)

	ErrCodeSessionServiceNotConfigured = errRegistry.Register(
		"SESSION_SERVICE_NOT_CONFIGURED",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Session service not configured",
	)
)

func NewMissingMessageError() *errx.Error {
	return errRegistry.New(ErrCodeMissingMessage)
}

func NewMessageTooLongError(length, max int) *errx.Error {
	return errRegistry.New(ErrCodeMessageTooLong).
		WithDetail("length", length).
		WithDetail("max", max)
}

func NewAgentExecutionFailedError(cause error) *errx.Error {
	return errRegistry.NewWithCause(ErrCodeAgentExecutionFailed, cause)
}

func NewSessionServiceNotConfiguredError() *errx.Error {
	return errRegistry.New(ErrCodeSessionServiceNotConfigured)
}
