package http

import (
	"net"
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
)

// Server bundles the chi mux with the listen address; actual serving is
// done by the worker Pool, which shares one listener across N workers
type Server struct {
	addr string
	mux  *chi.Mux
}

// NewServer creates a server shell around a fresh chi mux
// opts receive the *chi.Mux so callers can mount routes/mw
func NewServer(addr string, opts ...func(*chi.Mux)) *Server {
	m := chi.NewRouter()
	for _, o := range opts {
		o(m)
	}
	return &Server{addr: addr, mux: m}
}

// Router returns a Router facade over the internal chi mux
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Addr returns the configured listen address
func (s *Server) Addr() string { return s.addr }

// Handler returns the mux for the worker pool to serve
func (s *Server) Handler() stdhttp.Handler { return s.mux }

// Listen opens the shared listening socket
func (s *Server) Listen() (net.Listener, error) {
	return net.Listen("tcp", s.addr)
}
