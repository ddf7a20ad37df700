// Package module mounts the resolver's transport onto a router
package module

import (
	"time"

	phttp "unfurl/internal/platform/net/http"
	mw "unfurl/internal/platform/net/middleware"
	"unfurl/internal/services/resolver/domain"
	resolverhttp "unfurl/internal/services/resolver/http"
)

// Options configures the mount
type Options struct {
	Svc domain.ServicePort

	// CORS opens the endpoint to browser callers from any origin
	CORS bool

	// SlowRequest marks access-log entries at warn level past this
	// duration; zero disables the marking
	SlowRequest time.Duration
}

// Mount wires middlewares and the resolve endpoint onto r
func Mount(r phttp.Router, o Options) {
	r.Use(
		mw.RequestID(),
		mw.RealIP(),
		mw.RequestLogger(),
		mw.RecoverJSON,
		mw.Heartbeat("/healthz"),
		mw.AccessLog(mw.AccessLogOptions{Slow: o.SlowRequest}),
	)
	if o.CORS {
		r.Use(mw.CORS())
	}

	h := resolverhttp.NewHandler(o.Svc)
	r.Get("/", h.Resolve)
}
