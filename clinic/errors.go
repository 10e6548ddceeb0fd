package clinic

import (
	"net/http"

	"github.com/arludent/assistant/pkg/errx"
)

var errRegistry = errx.NewRegistry("CLINIC")

var (
	ErrCodeFileNotFound = errRegistry.Register(
		"FILE_NOT_FOUND",
		errx.TypeNotFound,
		http.StatusNotFound,
		"Profile file not found",
	)

	ErrCodeFileRead = errRegistry.Register(
		"FILE_READ_ERROR",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Failed to read profile file",
	)

	ErrCodeInvalidYAML = errRegistry.Register(
		"INVALID_YAML",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Invalid YAML in profile",
	)

	ErrCodeInvalidJSON = errRegistry.Register(
		"INVALID_JSON",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Invalid JSON in profile",
	)

	ErrCodeMissingField = errRegistry.Register(
		"MISSING_FIELD",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Profile is missing a required field",
	)
)

func ErrFileNotFound(path string) *errx.Error {
	return errRegistry.New(ErrCodeFileNotFound).WithDetail("path", path)
}

func ErrFileRead(path string, cause error) *errx.Error {
	return errRegistry.NewWithCause(ErrCodeFileRead, cause).WithDetail("path", path)
}

func ErrInvalidYAML(cause error) *errx.Error {
	return errRegistry.NewWithCause(ErrCodeInvalidYAML, cause)
}

func ErrInvalidJSON(cause error) *errx.Error {
	return errRegistry.NewWithCause(ErrCodeInvalidJSON, cause)
}

func ErrMissingField(field string) *errx.Error {
	return errRegistry.New(ErrCodeMissingField).WithDetail("field", field)
}
