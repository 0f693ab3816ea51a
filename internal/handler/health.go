package handler

import (
	"net/http"

	"github.com/DMarby/image-api/internal/health"
)

// Health is a handler for health check status
func Health(healthChecker *health.Checker) Handler {
	return Handler(newHandler(healthChecker))
}

func newHandler(healthChecker *health.Checker) func(w http.ResponseWriter, r *http.Request) *Error {
	return func(w http.ResponseWriter, r *http.Request) *Error {
		status := healthChecker.Status()

		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusInternalServerError
		}

		w.Header().Set("Cache-Control", "private, no-cache, no-store, must-revalidate")
		WriteJSON(w, code, status)
		return nil
	}
}
