// Package frontier holds the shared crawl state: the pending queue, the set of
// every address ever admitted ("seen") and the set of addresses whose fetch
// has completed ("searched").
//
// All compound operations run under one mutex, so the dedup invariant holds
// for any interleaving of callers: an address enters the pending queue at
// most once per run. The raw collections are never exposed.
package frontier

import (
	"sync"
)

// Frontier is the crawl state shared by the engine and its workers.
// The zero value is not usable; call New or Restore.
type Frontier struct {
	mu sync.Mutex

	// seen holds every admitted address.
	seen map[string]struct{}

	// seenOrder lists admitted addresses in discovery order.
	seenOrder []string

	// searched holds every address whose fetch has completed.
	searched map[string]bool

	// searchedOrder lists searched addresses in completion order.
	searchedOrder []string

	// pending is the FIFO of admitted addresses not yet dispatched.
	pending []string
}

// Snapshot is a point-in-time copy of the frontier suitable for a savestate.
type Snapshot struct {
	// Pending is Seen \ Searched in discovery order. It includes addresses
	// that were dispatched to a worker but have not completed.
	Pending []string

	// Searched lists completed addresses in completion order.
	Searched []string
}

// New creates an empty frontier and offers every seed to it.
// Duplicate seeds are admitted once.
func New(seeds ...string) *Frontier {
	f := &Frontier{
		seen:          make(map[string]struct{}),
		seenOrder:     make([]string, 0, len(seeds)),
		searched:      make(map[string]bool),
		searchedOrder: make([]string, 0),
		pending:       make([]string, 0, len(seeds)),
	}
	for _, seed := range seeds {
		f.TryEnqueue(seed)
	}
	return f
}

// Restore rebuilds a frontier from a savestate snapshot.
// Seen becomes Pending ∪ Searched; pending entries that are also searched
// are dropped so no address is fetched twice.
func Restore(snap Snapshot) *Frontier {
	f := New()
	for _, addr := range snap.Searched {
		if f.admit(addr) {
			f.markSearched(addr)
		}
	}
	for _, addr := range snap.Pending {
		if f.admit(addr) {
			f.pending = append(f.pending, addr)
		}
	}
	return f
}

// TryEnqueue admits addr to the frontier. It returns false and does nothing
// when addr has been seen before, including when it has been searched.
func (f *Frontier) TryEnqueue(addr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.admit(addr) {
		return false
	}
	f.pending = append(f.pending, addr)
	return true
}

// DrainBatch removes and returns every pending address, emptying the queue.
// The returned addresses stay in Seen but not in Searched until MarkSearched.
func (f *Frontier) DrainBatch() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	batch := f.pending
	f.pending = make([]string, 0)
	return batch
}

// MarkSearched records that the fetch of addr has completed.
// Addresses that were never admitted are admitted first so that
// Searched ⊆ Seen always holds.
func (f *Frontier) MarkSearched(addr string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.admit(addr)
	f.markSearched(addr)
}

// SearchedCount returns |Searched|.
func (f *Frontier) SearchedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.searchedOrder)
}

// SeenCount returns |Seen|.
func (f *Frontier) SeenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seenOrder)
}

// PendingLen returns the number of addresses waiting to be dispatched.
func (f *Frontier) PendingLen() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pending)
}

// IsSeen reports whether addr has ever been admitted.
func (f *Frontier) IsSeen(addr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.seen[addr]
	return ok
}

// IsSearched reports whether the fetch of addr has completed.
func (f *Frontier) IsSearched(addr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searched[addr]
}

// Snapshot copies the frontier state under the lock.
func (f *Frontier) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()

	pending := make([]string, 0, len(f.seenOrder)-len(f.searchedOrder))
	for _, addr := range f.seenOrder {
		if !f.searched[addr] {
			pending = append(pending, addr)
		}
	}
	searched := make([]string, len(f.searchedOrder))
	copy(searched, f.searchedOrder)

	return Snapshot{Pending: pending, Searched: searched}
}

// admit adds addr to Seen. The caller must hold mu.
func (f *Frontier) admit(addr string) bool {
	if _, ok := f.seen[addr]; ok {
		return false
	}
	f.seen[addr] = struct{}{}
	f.seenOrder = append(f.seenOrder, addr)
	return true
}

// markSearched adds addr to Searched. The caller must hold mu.
func (f *Frontier) markSearched(addr string) {
	if f.searched[addr] {
		return
	}
	f.searched[addr] = true
	f.searchedOrder = append(f.searchedOrder, addr)
}
