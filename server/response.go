package server

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/teranos/qntx-astro/errors"
)

// maxBodyBytes bounds request bodies; sample rows are small
const maxBodyBytes = 8 << 20

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		return errors.Wrap(err, "failed to encode JSON")
	}
	return nil
}

// writeError writes a JSON error response
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeWrappedError maps err to a status, logs server-side failures and
// writes the error with any attached hint
func writeWrappedError(w http.ResponseWriter, log *zap.SugaredLogger, err error, context string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Errorw(context, "error", err.Error(), "status", status)
	}
	writeJSON(w, status, errorBody{
		Error: errors.Wrap(err, context).Error(),
		Hint:  errors.FlattenHints(err),
	})
}

func statusFor(err error) int {
	switch {
	case errors.IsAny(err, errors.ErrInvalidRequest, errors.ErrUnknownUnit, errors.ErrNotConvertible):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errors.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, errors.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// readJSON reads and decodes a JSON request body, writing a 400 on failure
func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return err
	}
	return nil
}
