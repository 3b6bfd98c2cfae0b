package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/YuminosukeSato/stepml/pkg/errors"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Message ErrorMessage `json:"message"`
}

type ErrorMessage struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`
}

func (e ErrorMessage) Error() string {
	return e.Reason
}

var advice = map[errors.Category]string{
	errors.CategoryInput:      "upload a UTF-8, comma-separated file with a unique header row",
	errors.CategoryValidation: "check the request parameters",
	errors.CategoryData:       "the data cannot be used as is; upload a different file",
	errors.CategoryState:      "check GET /state for the current stage",
}

// StatusCode maps an error category to an HTTP status.
func StatusCode(cat errors.Category) int {
	switch cat {
	case errors.CategoryInput, errors.CategoryValidation:
		return http.StatusBadRequest
	case errors.CategoryData:
		return http.StatusUnprocessableEntity
	case errors.CategoryState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// toHTTPError converts a workflow error into an echo.HTTPError carrying an
// ErrorResponse.
func toHTTPError(err error) *echo.HTTPError {
	cat := errors.Classify(err)
	msg := ErrorMessage{Type: cat.String(), Reason: err.Error(), Advice: advice[cat]}
	if cat == errors.CategoryInternal {
		msg.Reason = "unexpected error"
	}
	return echo.NewHTTPError(StatusCode(cat), ErrorResponse{Message: msg}).SetInternal(err)
}

func badRequest(reason string, err error) *echo.HTTPError {
	msg := ErrorMessage{Type: errors.CategoryValidation.String(), Reason: reason}
	return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Message: msg}).SetInternal(err)
}
