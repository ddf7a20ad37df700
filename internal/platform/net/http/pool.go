package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"sync"
	"time"

	"unfurl/internal/platform/logger"

	"github.com/google/uuid"
)

// PoolOptions configures the worker pool
type PoolOptions struct {
	// Size is the number of workers sharing the listening socket
	Size int

	// WriteTimeout bounds a whole inbound exchange; callers derive it from
	// the outbound timeout, the redirect cap, and whether fetching is on
	WriteTimeout time.Duration

	ReadHeaderTimeout time.Duration
}

// Pool supervises a fixed-size set of workers that share one listening
// socket. Every worker exit, expected or not, is replaced with exactly one
// new worker, so the pool size is an invariant for the pool's lifetime.
type Pool struct {
	handler stdhttp.Handler
	ln      net.Listener
	opt     PoolOptions
	log     logger.Logger

	conns     chan net.Conn
	exits     chan exitNote
	acceptErr chan error
	ready     chan struct{}
	readyOnce sync.Once

	mu        sync.Mutex
	listening map[string]*worker
	stopping  bool
}

type worker struct {
	id  string
	srv *stdhttp.Server
	wl  *workerListener
}

type exitNote struct {
	id  string
	err error
}

// NewPool builds a pool serving handler from ln
func NewPool(handler stdhttp.Handler, ln net.Listener, opt PoolOptions) *Pool {
	if opt.Size <= 0 {
		opt.Size = 1
	}
	if opt.ReadHeaderTimeout <= 0 {
		opt.ReadHeaderTimeout = 10 * time.Second
	}
	return &Pool{
		handler:   handler,
		ln:        ln,
		opt:       opt,
		log:       *logger.Named("pool"),
		conns:     make(chan net.Conn),
		exits:     make(chan exitNote, opt.Size),
		acceptErr: make(chan error, 1),
		ready:     make(chan struct{}),
		listening: make(map[string]*worker),
	}
}

// Ready is closed once all workers have reported listening
func (p *Pool) Ready() <-chan struct{} { return p.ready }

// WorkerIDs returns the ids of the currently listening workers
func (p *Pool) WorkerIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.listening))
	for id := range p.listening {
		ids = append(ids, id)
	}
	return ids
}

// Terminate forcefully stops one worker by id; the supervisor will spawn
// a replacement. Reports whether the id was a live worker.
func (p *Pool) Terminate(id string) bool {
	p.mu.Lock()
	w, ok := p.listening[id]
	p.mu.Unlock()
	if !ok {
		return false
	}
	_ = w.srv.Close()
	return true
}

// Run accepts connections and supervises the workers until ctx is done
func (p *Pool) Run(ctx context.Context) error {
	go p.acceptLoop()

	for i := 0; i < p.opt.Size; i++ {
		p.spawn()
	}

	for {
		select {
		case <-ctx.Done():
			p.shutdown()
			return nil

		case err := <-p.acceptErr:
			p.mu.Lock()
			stopping := p.stopping
			p.mu.Unlock()
			if stopping {
				continue
			}
			p.shutdown()
			return err

		case note := <-p.exits:
			p.mu.Lock()
			delete(p.listening, note.id)
			stopping := p.stopping
			p.mu.Unlock()

			evt := p.log.Info()
			if note.err != nil {
				evt = p.log.Error().Err(note.err)
			}
			evt.Str("worker", note.id).Msg("worker exited")

			if !stopping {
				p.spawn()
			}
		}
	}
}

// acceptLoop is the single owner of the shared socket; workers receive
// accepted connections over the conns channel
func (p *Pool) acceptLoop() {
	for {
		c, err := p.ln.Accept()
		if err != nil {
			p.acceptErr <- err
			return
		}
		p.conns <- c
	}
}

// spawn starts one worker and records it in the listening set
func (p *Pool) spawn() {
	id := uuid.NewString()[:8]
	wl := &workerListener{conns: p.conns, done: make(chan struct{}), addr: p.ln.Addr()}
	w := &worker{
		id: id,
		srv: &stdhttp.Server{
			Handler:           p.handler,
			WriteTimeout:      p.opt.WriteTimeout,
			ReadHeaderTimeout: p.opt.ReadHeaderTimeout,
		},
		wl: wl,
	}

	p.mu.Lock()
	p.listening[id] = w
	n := len(p.listening)
	p.mu.Unlock()

	p.log.Info().Str("worker", id).Int("listening", n).Msg("worker listening")
	if n == p.opt.Size {
		p.readyOnce.Do(func() {
			close(p.ready)
			p.log.Info().Int("workers", n).Msg("pool ready")
		})
	}

	go func() {
		defer func() {
			if v := recover(); v != nil {
				p.exits <- exitNote{id: id, err: fmt.Errorf("worker panic: %v", v)}
			}
		}()
		err := w.srv.Serve(wl)
		if errors.Is(err, stdhttp.ErrServerClosed) || errors.Is(err, net.ErrClosed) {
			err = nil
		}
		p.exits <- exitNote{id: id, err: err}
	}()
}

// shutdown stops accepting, drains the workers, and closes stray conns
func (p *Pool) shutdown() {
	p.mu.Lock()
	p.stopping = true
	workers := make([]*worker, 0, len(p.listening))
	for _, w := range p.listening {
		workers = append(workers, w)
	}
	remaining := len(p.listening)
	p.mu.Unlock()

	_ = p.ln.Close()

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, w := range workers {
		_ = w.srv.Shutdown(sctx)
	}

	for remaining > 0 {
		note := <-p.exits
		p.mu.Lock()
		delete(p.listening, note.id)
		remaining = len(p.listening)
		p.mu.Unlock()
	}

	// connections accepted but never handed to a worker
	for {
		select {
		case c := <-p.conns:
			_ = c.Close()
		default:
			p.log.Info().Msg("pool stopped")
			return
		}
	}
}

// workerListener hands a worker its share of the accepted connections;
// closing it detaches only that worker from the shared socket
type workerListener struct {
	conns <-chan net.Conn
	done  chan struct{}
	once  sync.Once
	addr  net.Addr
}

func (l *workerListener) Accept() (net.Conn, error) {
	select {
	case <-l.done:
		return nil, net.ErrClosed
	default:
	}
	select {
	case <-l.done:
		return nil, net.ErrClosed
	case c, ok := <-l.conns:
		if !ok {
			return nil, net.ErrClosed
		}
		return c, nil
	}
}

func (l *workerListener) Close() error {
	l.once.Do(func() { close(l.done) })
	return nil
}

func (l *workerListener) Addr() net.Addr { return l.addr }
