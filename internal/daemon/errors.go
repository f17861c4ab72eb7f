package daemon

import (
	"errors"
	"net/http"

	"voicecollect/internal/logging"
	"voicecollect/internal/recorder"
	"voicecollect/internal/services"
)

type errorDetail struct {
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

// statusForError maps an error kind onto its HTTP status.
func statusForError(err error) int {
	switch services.KindOf(err) {
	case services.KindInvalidMedia:
		if errors.Is(err, recorder.ErrPayloadTooLarge) {
			return http.StatusRequestEntityTooLarge
		}
		return http.StatusBadRequest
	case services.KindNormalizationFailed:
		return http.StatusUnprocessableEntity
	case services.KindStorageFailed:
		return http.StatusBadGateway
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	kind := services.KindOf(err)
	message := err.Error()
	if kind == services.KindInternal {
		message = "internal error"
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "unclassified request failure", "api_internal_error",
			logging.String("route", r.URL.Path),
			logging.Error(err),
		)
	}
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	s.writeJSON(w, status, errorBody{Error: errorDetail{
		Kind:      string(kind),
		Message:   message,
		Retryable: services.Retryable(err),
	}})
}
