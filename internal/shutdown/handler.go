package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Handler manages graceful shutdown
type Handler struct {
	ctx        context.Context
	stop       context.CancelFunc
	cleanupFns []func()
	mu         sync.Mutex
	once       sync.Once
}

// New creates a handler whose context ends on SIGINT or SIGTERM.
func New() *Handler {
	return newHandler(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newHandler(parent context.Context, signals ...os.Signal) *Handler {
	ctx, stop := signal.NotifyContext(parent, signals...)
	return &Handler{ctx: ctx, stop: stop}
}

// Context returns the shutdown context. It ends on the first signal;
// cleanup functions still wait for Shutdown.
func (h *Handler) Context() context.Context {
	return h.ctx
}

// AddCleanup registers a cleanup function to be called on shutdown.
// Functions run in reverse registration order.
func (h *Handler) AddCleanup(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanupFns = append(h.cleanupFns, fn)
}

// Shutdown cancels the context and runs the cleanup functions once.
func (h *Handler) Shutdown() {
	h.once.Do(func() {
		h.stop()

		h.mu.Lock()
		fns := h.cleanupFns
		h.mu.Unlock()

		for i := len(fns) - 1; i >= 0; i-- {
			fns[i]()
		}
	})
}
