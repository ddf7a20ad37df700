// Package http carries the resolver's HTTP transport
package http

import (
	stdhttp "net/http"
	"time"

	"unfurl/internal/platform/logger"
	phttp "unfurl/internal/platform/net/http"
	"unfurl/internal/services/resolver/domain"
)

// Handler terminates the resolve endpoint
type Handler struct {
	svc domain.ServicePort
}

// NewHandler builds the transport handler around the service port
func NewHandler(svc domain.ServicePort) *Handler {
	return &Handler{svc: svc}
}

// Resolve handles GET /?url=<target>[&fetch=false]. The reply is always
// HTTP 200 with a flat JSON result body; outcome lives in error/reason.
func (h *Handler) Resolve(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	q := r.URL.Query()
	req := domain.Request{
		URL:         q.Get("url"),
		FetchWanted: true,
		Start:       time.Now(),
	}
	if f := q.Get("fetch"); f == "false" || f == "0" {
		req.FetchWanted = false
	}

	res := h.svc.Resolve(r.Context(), req)

	if r.Context().Err() != nil {
		// the pipeline ran to completion anyway; only the reply is lost
		logger.C(r.Context()).Warn().Str("url", req.URL).Msg("client gone before reply")
	}
	phttp.OK(w, res)
}
