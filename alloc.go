package decodefuzz

import (
	"fmt"
	"sync"
)

// Stats counts allocator activity. After any number of finished attempts a well-behaved target
// leaves Allocs == Frees, Opened == Released and BytesOutstanding == 0.
type Stats struct {
	Allocs   int
	Frees    int
	Opened   int
	Released int

	// Reclaimed counts scratch buffers the decoder did not free itself. They are freed when the
	// attempt's scope closes and are included in Frees.
	Reclaimed int

	BytesOutstanding int
}

// Allocator hands out scratch memory within a byte budget and keeps count of what was handed out
// and returned. It is safe for concurrent use by independent attempts.
type Allocator struct {
	mu          sync.Mutex
	budget      int
	outstanding int
	stats       Stats
}

// NewAllocator creates an allocator which allows at most budget bytes outstanding.
func NewAllocator(budget int) *Allocator {
	if budget <= 0 {
		budget = DefaultScratchBudget
	}
	return &Allocator{budget: budget}
}

// Stats returns a snapshot of the allocator's counters.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := a.stats
	s.BytesOutstanding = a.outstanding
	return s
}

func (a *Allocator) acquire(n int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n < 0 || n > a.budget-a.outstanding {
		return fmt.Errorf("%w: requested %d bytes with %d of %d in use",
			ErrScratchExhausted, n, a.outstanding, a.budget)
	}
	a.outstanding += n
	a.stats.Allocs++
	return nil
}

func (a *Allocator) release(n int, reclaimed bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outstanding -= n
	a.stats.Frees++
	if reclaimed {
		a.stats.Reclaimed++
	}
}

func (a *Allocator) noteOpened() {
	a.mu.Lock()
	a.stats.Opened++
	a.mu.Unlock()
}

func (a *Allocator) noteReleased() {
	a.mu.Lock()
	a.stats.Released++
	a.mu.Unlock()
}

// Scope is the resource scope of a single Decode Attempt. Decoders acquire scratch buffers through
// it; whatever they fail to free is freed when the attempt ends. A Scope is used by one goroutine.
type Scope struct {
	cfg   Config
	alloc *Allocator
	live  map[*byte]int
}

func newScope(cfg Config, alloc *Allocator) *Scope {
	return &Scope{cfg: cfg, alloc: alloc, live: make(map[*byte]int)}
}

// Config returns the limits in effect for this attempt.
func (s *Scope) Config() Config { return s.cfg }

// Alloc returns a zeroed scratch buffer of n bytes. A request for zero bytes returns nil.
func (s *Scope) Alloc(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if err := s.alloc.acquire(n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	s.live[&b[0]] = n
	return b, nil
}

// Free returns a buffer obtained from Alloc. Freeing nil, a foreign buffer, or the same buffer
// twice is a no-op.
func (s *Scope) Free(b []byte) {
	if cap(b) == 0 {
		return
	}
	key := &b[:1][0]
	n, ok := s.live[key]
	if !ok {
		return
	}
	delete(s.live, key)
	s.alloc.release(n, false)
}

// close frees every buffer still live and reports how many there were.
func (s *Scope) close() int {
	reclaimed := len(s.live)
	for key, n := range s.live {
		delete(s.live, key)
		s.alloc.release(n, true)
	}
	return reclaimed
}
