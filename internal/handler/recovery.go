package handler

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/DMarby/image-api/internal/logger"
	"github.com/DMarby/image-api/internal/tracing"
)

// Recovery is a handler for handling panics
func Recovery(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				ctx := r.Context()
				traceID, spanID := tracing.TraceInfo(ctx)
				log.Errorw("panic handling request",
					"request-id", GetReqID(ctx),
					"trace-id", traceID,
					"span-id", spanID,
					"panic", fmt.Sprint(err),
					"stacktrace", string(debug.Stack()),
				)

				Handler(func(w http.ResponseWriter, r *http.Request) *Error {
					return InternalServerError()
				}).ServeHTTP(w, r)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
