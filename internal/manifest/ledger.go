package manifest

import (
	"path/filepath"
	"sync"
)

// Ledger counts manifest writes per absolute manifest path for the lifetime
// of the process. Construct one per process and share it between emitters.
//
// A path with no writes is a cold start: whatever is on disk was left by an
// unrelated process and is overwritten. Once written, the in-memory state of
// the emitter that wrote it is authoritative.
type Ledger struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{counts: make(map[string]int)}
}

func ledgerKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// ShouldReconcileWithDisk reports whether a manifest was already written to
// path during this process. When false the on-disk file must be ignored.
func (l *Ledger) ShouldReconcileWithDisk(path string) bool {
	return l.Count(path) > 0
}

// Register marks path as a manifest location without counting a write, so
// other emitters sharing the ledger leave the file out of their manifests.
func (l *Ledger) Register(path string) {
	l.mu.Lock()
	key := ledgerKey(path)
	if _, ok := l.counts[key]; !ok {
		l.counts[key] = 0
	}
	l.mu.Unlock()
}

// RecordWrite increments the write count for path.
func (l *Ledger) RecordWrite(path string) {
	l.mu.Lock()
	l.counts[ledgerKey(path)]++
	l.mu.Unlock()
}

// Count returns the number of writes recorded for path.
func (l *Ledger) Count(path string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[ledgerKey(path)]
}

// Tracked reports whether path is a manifest written by any emitter sharing
// this ledger.
func (l *Ledger) Tracked(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.counts[ledgerKey(path)]
	return ok
}
