package manifest

import (
	"sort"
	"sync"
)

type tap[T any] struct {
	name  string
	stage int
	seq   int
	fn    T
}

// Hooks lets other observers see the manifest around emission. BeforeEmit
// taps form a waterfall: each receives the previous tap's manifest and
// returns the one handed on. AfterEmit taps are notified once the manifest
// was persisted or exposed. Taps run by ascending stage, then tap order.
type Hooks struct {
	mu         sync.RWMutex
	seq        int
	beforeEmit []tap[func(Manifest) Manifest]
	afterEmit  []tap[func(Manifest)]
}

// NewHooks creates an empty hook set.
func NewHooks() *Hooks {
	return &Hooks{}
}

// TapBeforeEmit registers fn to transform the manifest before serialization.
func (h *Hooks) TapBeforeEmit(name string, stage int, fn func(Manifest) Manifest) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	h.beforeEmit = insertTap(h.beforeEmit, tap[func(Manifest) Manifest]{name: name, stage: stage, seq: h.seq, fn: fn})
}

// TapAfterEmit registers fn to observe the emitted manifest.
func (h *Hooks) TapAfterEmit(name string, stage int, fn func(Manifest)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	h.afterEmit = insertTap(h.afterEmit, tap[func(Manifest)]{name: name, stage: stage, seq: h.seq, fn: fn})
}

// insertTap returns a new slice so snapshots held by running hooks stay intact.
func insertTap[T any](taps []tap[T], t tap[T]) []tap[T] {
	taps = append(append(make([]tap[T], 0, len(taps)+1), taps...), t)
	sort.SliceStable(taps, func(i, j int) bool {
		if taps[i].stage != taps[j].stage {
			return taps[i].stage < taps[j].stage
		}
		return taps[i].seq < taps[j].seq
	})
	return taps
}

func (h *Hooks) runBeforeEmit(m Manifest) Manifest {
	if h == nil {
		return m
	}
	h.mu.RLock()
	taps := h.beforeEmit
	h.mu.RUnlock()
	for _, t := range taps {
		if next := t.fn(m); next != nil {
			m = next
		}
	}
	return m
}

func (h *Hooks) runAfterEmit(m Manifest) {
	if h == nil {
		return
	}
	h.mu.RLock()
	taps := h.afterEmit
	h.mu.RUnlock()
	for _, t := range taps {
		t.fn(m)
	}
}
