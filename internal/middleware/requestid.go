// Package middleware provides HTTP middleware for QuizHub.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/adaptivelabs/quizhub/internal/logger"
)

const headerRequestID = "X-Request-ID"

// RequestID extracts X-Request-ID from the request header or generates a
// new one. The ID is stored in the context and echoed on the response
// header so producers can correlate publishes with hub logs.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
