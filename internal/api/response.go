package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"
)

// Error is the body every non-2xx response carries. The code mirrors
// the HTTP status except for validation failures, which keep the
// protocol's historical 405 code while being served as 400.
type Error struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func Unauthorized(w http.ResponseWriter) {
	WriteJSON(w, http.StatusUnauthorized, Error{Code: 401, Message: "User not authorized"})
}

func NotFound(w http.ResponseWriter) {
	WriteJSON(w, http.StatusNotFound, Error{Code: 404, Message: "Resource not found"})
}

func Validation(w http.ResponseWriter) {
	WriteJSON(w, http.StatusBadRequest, Error{Code: 405, Message: "Input could not be validated"})
}

func Gone(w http.ResponseWriter) {
	WriteJSON(w, http.StatusGone, Error{Code: 410, Message: "Subscription has been deleted"})
}

func Internal(w http.ResponseWriter) {
	WriteJSON(w, http.StatusInternalServerError, Error{Code: 500, Message: "Internal server error"})
}
