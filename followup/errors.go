package followup

import (
	"net/http"

	"github.com/arludent/assistant/pkg/errx"
)

var errRegistry = errx.NewRegistry("FOLLOWUP")

var (
	ErrCodeInvalidRequest = errRegistry.Register(
		"INVALID_REQUEST",
		errx.TypeValidation,
		http.StatusBadRequest,
		"Invalid follow-up analysis request",
	)

	ErrCodeAnalysisFailed = errRegistry.Register(
		"ANALYSIS_FAILED",
		errx.TypeInternal,
		http.StatusInternalServerError,
		"Follow-up analysis failed",
	)
)

func NewInvalidRequestError(reason string) *errx.Error {
	return errRegistry.NewWithMessage(ErrCodeInvalidRequest, reason)
}

func NewAnalysisFailedError(cause error) *errx.Error {
	return errRegistry.NewWithCause(ErrCodeAnalysisFailed, cause)
}
