package handler

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Error is the message and http status code to return
type Error struct {
	Message string
	Code    int
}

// InternalServerError is a convenience function for returning an internal server error
func InternalServerError() *Error {
	return &Error{
		Message: "Something went wrong",
		Code:    http.StatusInternalServerError,
	}
}

// BadRequest is a convenience function for returning a bad request error
func BadRequest(message string) *Error {
	return &Error{
		Message: message,
		Code:    http.StatusBadRequest,
	}
}

// UnprocessableEntity is a convenience function for returning an error for a well formed request that can't be processed
func UnprocessableEntity(message string) *Error {
	return &Error{
		Message: message,
		Code:    http.StatusUnprocessableEntity,
	}
}

// NotFound is a convenience function for returning a not found error
func NotFound() *Error {
	return &Error{
		Message: "Not found",
		Code:    http.StatusNotFound,
	}
}

const jsonMediaType = "application/json"

// Handler wraps a http handler and deals with responding to errors
type Handler func(w http.ResponseWriter, r *http.Request) *Error

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h(w, r)
	if err == nil {
		return
	}

	// Drop any headers set for a successful response
	w.Header().Del("Content-Disposition")
	w.Header().Set("Cache-Control", "private, no-cache, no-store, must-revalidate")

	if !strings.Contains(r.Header.Get("Accept"), jsonMediaType) {
		http.Error(w, err.Message, err.Code)
		return
	}

	WriteJSON(w, err.Code, struct {
		Error string `json:"error"`
	}{err.Message})
}

// WriteJSON writes v as a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, code int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", jsonMediaType)
	w.WriteHeader(code)
	w.Write(append(data, '\n'))
}
