package manifest

import "sync"

// Tracker records which source module produced each module asset. Entries
// are never removed: an asset emitted on the first pass keeps its
// classification on later incremental passes that do not touch its module.
type Tracker struct {
	mu     sync.RWMutex
	assets map[string]string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{assets: make(map[string]string)}
}

// Record associates assetName with the request of the module that emitted it.
// A later record for the same asset overwrites the earlier one.
func (t *Tracker) Record(assetName, userRequest string) {
	if assetName == "" || userRequest == "" {
		return
	}
	t.mu.Lock()
	t.assets[assetName] = userRequest
	t.mu.Unlock()
}

// Lookup returns the module request recorded for assetName.
func (t *Tracker) Lookup(assetName string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	req, ok := t.assets[assetName]
	return req, ok
}

// Len returns the number of tracked assets.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.assets)
}
