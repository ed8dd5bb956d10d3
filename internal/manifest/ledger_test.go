package manifest

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_ColdAndWarm(t *testing.T) {
	l := NewLedger()
	path := filepath.Join(t.TempDir(), "manifest.json")

	assert.False(t, l.ShouldReconcileWithDisk(path))
	assert.False(t, l.Tracked(path))

	l.Register(path)
	assert.True(t, l.Tracked(path))
	assert.False(t, l.ShouldReconcileWithDisk(path), "registration is not a write")

	l.RecordWrite(path)
	assert.True(t, l.ShouldReconcileWithDisk(path))
	assert.Equal(t, 1, l.Count(path))

	// registering again keeps the count
	l.Register(path)
	assert.Equal(t, 1, l.Count(path))
}

func TestLedger_NormalizesPaths(t *testing.T) {
	l := NewLedger()
	dir := t.TempDir()

	l.RecordWrite(filepath.Join(dir, "sub", "..", "manifest.json"))

	assert.Equal(t, 1, l.Count(filepath.Join(dir, "manifest.json")))
}

func TestLedger_Concurrent(t *testing.T) {
	l := NewLedger()
	path := filepath.Join(t.TempDir(), "manifest.json")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RecordWrite(path)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, l.Count(path))
}

func TestTracker(t *testing.T) {
	tr := NewTracker()

	tr.Record("img/a.png", "./a.png")
	tr.Record("", "./ignored.png")
	tr.Record("img/b.png", "")

	req, ok := tr.Lookup("img/a.png")
	assert.True(t, ok)
	assert.Equal(t, "./a.png", req)

	_, ok = tr.Lookup("img/b.png")
	assert.False(t, ok)
	assert.Equal(t, 1, tr.Len())

	tr.Record("img/a.png", "./other/a.png")
	req, _ = tr.Lookup("img/a.png")
	assert.Equal(t, "./other/a.png", req)
	assert.Equal(t, 1, tr.Len())
}
