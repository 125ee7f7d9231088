package state

import (
	"context"
	"sync"
)

// Ticket identifies one fetch of a given kind.
type Ticket struct {
	kind   string
	gen    uint64
	cancel context.CancelFunc
}

// Tracker sequences fetches per kind. The zero value is ready to use.
type Tracker struct {
	mu      sync.Mutex
	gens    map[string]uint64
	cancels map[string]context.CancelFunc
}

// Begin starts a fetch of kind, cancelling any older fetch of the same kind.
func (t *Tracker) Begin(ctx context.Context, kind string) (context.Context, Ticket) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.init()
	if cancel := t.cancels[kind]; cancel != nil {
		cancel()
	}
	t.gens[kind]++
	fetchCtx, cancel := context.WithCancel(ctx)
	t.cancels[kind] = cancel
	return fetchCtx, Ticket{kind: kind, gen: t.gens[kind], cancel: cancel}
}

// Commit runs apply only if tk is still the newest ticket of its kind and
// reports whether it ran. apply executes under the tracker lock so a newer
// fetch can never be overwritten by an older one. The ticket's context is
// released either way.
func (t *Tracker) Commit(tk Ticket, apply func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.init()
	if tk.cancel != nil {
		tk.cancel()
	}
	if t.gens[tk.kind] != tk.gen {
		return false
	}
	delete(t.cancels, tk.kind)
	if apply != nil {
		apply()
	}
	return true
}

// Invalidate discards any in-flight fetch of kind.
func (t *Tracker) Invalidate(kind string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.init()
	if cancel := t.cancels[kind]; cancel != nil {
		cancel()
		delete(t.cancels, kind)
	}
	t.gens[kind]++
}

func (t *Tracker) init() {
	if t.gens == nil {
		t.gens = make(map[string]uint64)
		t.cancels = make(map[string]context.CancelFunc)
	}
}
