package httpapi

import (
	"encoding/json"
	"net/http"

	"accountd/internal/apperr"
	"accountd/internal/obs"
)

type errorResponse struct {
	Errors []apperr.WireError `json:"errors"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErrorEnvelope serves the uniform envelope with a real HTTP status;
// only non-gateway routes use it.
func writeErrorEnvelope(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Errors: []apperr.WireError{apperr.ToWire(err)}})
}

// finishError applies the formatter contract for gateway operations:
// escalate unexpected errors to the tracker, log recognized ones locally,
// then serve the stripped envelope with HTTP 200.
func (a *API) finishError(r *http.Request, w http.ResponseWriter, err error) {
	requestID := RequestIDFromContext(r.Context())
	if apperr.Unexpected(err) {
		a.reporter.Report(err, map[string]any{
			"request_id": requestID,
			"path":       r.URL.Path,
		})
	} else {
		obs.LogEntry("error", map[string]any{
			"msg":        "caught error",
			"error":      err.Error(),
			"request_id": requestID,
		})
	}
	writeJSON(w, http.StatusOK, errorResponse{Errors: []apperr.WireError{apperr.ToWire(err)}})
}
