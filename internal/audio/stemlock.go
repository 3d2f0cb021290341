package audio

import (
	"context"
	"sync"
)

// stemLocks serialises work on one temporary stem. Two requests for the
// same track in the same directory share a stem, and each one removes
// everything under it when it fails.
type stemLocks struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func newStemLocks() *stemLocks {
	return &stemLocks{held: make(map[string]chan struct{})}
}

// lock blocks until stem is free or ctx is done.
func (l *stemLocks) lock(ctx context.Context, stem string) (unlock func(), err error) {
	for {
		l.mu.Lock()
		busy, ok := l.held[stem]
		if !ok {
			done := make(chan struct{})
			l.held[stem] = done
			l.mu.Unlock()
			return func() {
				l.mu.Lock()
				delete(l.held, stem)
				l.mu.Unlock()
				close(done)
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-busy:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
