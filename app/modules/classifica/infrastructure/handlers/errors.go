package classificahandlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	classificaservice "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/application"
	classificaqueue "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/queue"
	"github.com/Black-And-White-Club/pinfall-import/internal/observability"
)

// errorResponse is the body of every non-2xx reply.
type errorResponse struct {
	Error         string `json:"error"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, classificaservice.ErrInvalidSource),
		errors.Is(err, classificaservice.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, classificaservice.ErrTournamentNotFound),
		errors.Is(err, classificaqueue.ErrJobNotFound):
		return http.StatusNotFound
	case errors.Is(err, classificaservice.ErrCommitConflict):
		return http.StatusConflict
	case errors.Is(err, classificaservice.ErrNoTabularDataFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, classificaservice.ErrFetchFailed):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *ClassificaHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	status := statusFor(err)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "Request failed",
			observability.CorrelationAttr(ctx),
			observability.ErrorAttr(err),
		)
		msg = http.StatusText(status)
	} else {
		h.logger.WarnContext(ctx, "Request rejected",
			observability.CorrelationAttr(ctx),
			observability.ErrorAttr(err),
		)
	}

	writeJSON(w, status, errorResponse{
		Error:         msg,
		CorrelationID: observability.CorrelationID(ctx),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
