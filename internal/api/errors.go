package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"smart-budget-planner/internal/forecasterror"
	"smart-budget-planner/internal/logging"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string             `json:"error"`
	Kind  forecasterror.Kind `json:"kind"`
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind forecasterror.Kind) int {
	switch kind {
	case forecasterror.MalformedInput:
		return http.StatusBadRequest
	case forecasterror.Unauthorized:
		return http.StatusUnauthorized
	case forecasterror.InsufficientData:
		return http.StatusUnprocessableEntity
	case forecasterror.Timeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with the status of its kind. Internal details of
// storage and internal failures are logged, not returned.
func writeError(w http.ResponseWriter, r *http.Request, logger logging.Logger, err error) {
	kind := forecasterror.KindOf(err)
	status := StatusFor(kind)

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
		var fe *forecasterror.Error
		if errors.As(err, &fe) {
			msg = fe.Op + ": " + fe.Msg
		}
	}

	log := logger.WithFields(
		logging.Field{Key: logging.FieldRequestID, Value: RequestIDFrom(r.Context())},
		logging.Field{Key: logging.FieldErrorKind, Value: string(kind)},
		logging.Field{Key: logging.FieldHTTPStatus, Value: status}).WithError(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed")
	} else {
		log.Warn("Request rejected")
	}

	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}
