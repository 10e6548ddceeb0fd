package tools

import (
	"net/http"

	"github.com/arludent/assistant/pkg/errx"
)

var errRegistry = errx.NewRegistry("TOOLS")

var (
	ErrCodeInvalidArguments = errRegistry.Register(
		"INVALID_ARGUMENTS",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Invalid tool arguments",
	)
)

func ErrInvalidArguments(cause error) *errx.Error {
	return errRegistry.NewWithCause(ErrCodeInvalidArguments, cause)
}
