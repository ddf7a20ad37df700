// Package middleware holds adapters and in house middlewares
package middleware

import (
	"net/http"

	"unfurl/internal/platform/logger"
	pnet "unfurl/internal/platform/net"

	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"
)

// RequestID attaches or propagates X-Request-ID and stores it on context
func RequestID() func(http.Handler) http.Handler { return chimw.RequestID }

// RealIP sets RemoteAddr to the upstream IP based on X-Forwarded-For headers
func RealIP() func(http.Handler) http.Handler { return chimw.RealIP }

// Heartbeat replies with 200 OK to GET path, useful for LB health checks
func Heartbeat(path string) func(http.Handler) http.Handler { return chimw.Heartbeat(path) }

// RequestLogger copies the chi request id into the logger context so that
// logger.C picks it up everywhere downstream
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logger.WithRequest(r.Context(), pnet.RequestID(r.Context()))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// CORS wraps go-chi/cors with permissive read-only defaults; the resolve
// endpoint is a public GET surface
func CORS() func(http.Handler) http.Handler {
	return chicors.Handler(chicors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	})
}
