package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-cms/pkg/simplecms"
)

// ErrorBody is the JSON envelope for failed requests.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failure.
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Fields  []simplecms.FieldError `json:"fields,omitempty"`
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// writeServiceError maps a service error onto an HTTP status.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var (
		validation *simplecms.ValidationError
		notFound   *simplecms.NotFoundError
		transition *simplecms.InvalidTransitionError
		conflict   *simplecms.ConflictError
	)

	switch {
	case errors.As(err, &validation):
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorBody{Error: ErrorDetail{
			Code:    "validation_failed",
			Message: err.Error(),
			Fields:  validation.Fields,
		}})
	case errors.As(err, &notFound), errors.Is(err, simplecms.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.As(err, &transition):
		writeError(w, r, http.StatusConflict, "invalid_transition", err.Error())
	case errors.As(err, &conflict):
		writeError(w, r, http.StatusConflict, "conflict", err.Error())
	default:
		h.logger.Error("Request failed", "op", op, "error", err)
		writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
