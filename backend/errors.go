package backend

import (
	"net/http"

	"github.com/arludent/assistant/pkg/errx"
)

var errRegistry = errx.NewRegistry("BACKEND")

var (
	ErrCodeRequestFailed = errRegistry.Register(
		"REQUEST_FAILED",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Backend request failed",
	)

	ErrCodeNotFound = errRegistry.Register(
		"NOT_FOUND",
		errx.TypeNotFound,
		http.StatusNotFound,
		"Resource not found in backend",
	)

	ErrCodeRejected = errRegistry.Register(
		"REJECTED",
		errx.TypeBusiness,
		http.StatusUnprocessableEntity,
		"Backend rejected the request",
	)

	ErrCodeInvalidResponse = errRegistry.Register(
		"INVALID_RESPONSE",
		errx.TypeExternal,
		http.StatusBadGateway,
		"Backend returned an invalid response",
	)
)

func ErrRequestFailed(cause error) *errx.Error {
	return errRegistry.NewWithCause(ErrCodeRequestFailed, cause)
}

func ErrNotFound(path string) *errx.Error {
	return errRegistry.New(ErrCodeNotFound).WithDetail("path", path)
}

func ErrRejected(message string) *errx.Error {
	if message == "" {
		return errRegistry.New(ErrCodeRejected)
	}
	return errRegistry.NewWithMessage(ErrCodeRejected, message)
}

func ErrInvalidResponse(cause error) *errx.Error {
	return errRegistry.NewWithCause(ErrCodeInvalidResponse, cause)
}
