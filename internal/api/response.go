package api

import (
	"encoding/json"
	"net/http"
)

type Response struct {
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	Write(w, status, Response{Data: data})
}

// Write encodes v as the whole response body, without the data envelope.
func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func JSONMessage(w http.ResponseWriter, status int, message string) {
	Write(w, status, Response{Message: message})
}

func JSONError(w http.ResponseWriter, status int, err error) {
	Write(w, status, Response{Error: err.Error()})
}

func JSONErrorMessage(w http.ResponseWriter, status int, message string) {
	Write(w, status, Response{Error: message})
}
