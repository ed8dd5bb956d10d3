package manifest

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fluxbase-eu/assetmanifest/internal/observability"
	"github.com/fluxbase-eu/assetmanifest/internal/storage"
)

// State is the position of an Emitter in its pass lifecycle.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StateBuilt
	StateSerialized
	StatePersisted
	StateExposedOnly
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateBuilt:
		return "built"
	case StateSerialized:
		return "serialized"
	case StatePersisted:
		return "persisted"
	case StateExposedOnly:
		return "exposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recorder receives emission metrics.
type Recorder interface {
	RecordPass(result string, files, bytes int, duration time.Duration)
	RecordWrite(backend string, duration time.Duration, err error)
}

// Artifact is the outcome of one completed pass.
type Artifact struct {
	CompilationID string
	Manifest      Manifest
	// Keys is the order Output lists manifest keys in, nil when unordered
	Keys   []string
	Output []byte
	Files  []FileDescriptor
	// FileName is the absolute manifest location
	FileName string
	// AssetID is FileName relative to the output directory
	AssetID string
	// State is StatePersisted or StateExposedOnly
	State State
}

// EmitterConfig wires an Emitter to its collaborators. Only Options and
// OutputPath are required.
type EmitterConfig struct {
	Options    Options
	OutputPath string
	Ledger     *Ledger
	Tracker    *Tracker
	Hooks      *Hooks
	// Storage receives the manifest when Options.WriteToFileEmit is set.
	// Defaults to local storage rooted at OutputPath.
	Storage storage.Storage
	Bucket  string
	Metrics Recorder
}

// Emitter drives manifest passes: Idle -> Collecting -> Built -> Serialized
// -> Persisted or ExposedOnly -> Idle. It is safe to call from the host's
// callback goroutines; passes are serialized. State, Latest and Artifact
// never wait for a running pass.
type Emitter struct {
	// mu serializes passes
	mu sync.Mutex
	// stateMu guards state and latest; writers also hold mu
	stateMu sync.RWMutex

	opts       Options
	outputPath string
	fileName   string
	assetID    string

	ledger  *Ledger
	tracker *Tracker
	hooks   *Hooks
	store   storage.Storage
	bucket  string
	metrics Recorder
	builder *Builder

	state    State
	previous Manifest
	latest   *Artifact
}

// NewEmitter validates cfg and creates an idle emitter.
func NewEmitter(cfg EmitterConfig) (*Emitter, error) {
	opts := cfg.Options.WithDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	outputPath := cfg.OutputPath
	if outputPath == "" {
		outputPath = "."
	}
	outputPath, err := filepath.Abs(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output path: %w", err)
	}

	fileName := opts.FileName
	if !filepath.IsAbs(fileName) {
		fileName = filepath.Join(outputPath, fileName)
	}
	assetID, err := filepath.Rel(outputPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFileName, err)
	}

	e := &Emitter{
		opts:       opts,
		outputPath: outputPath,
		fileName:   fileName,
		assetID:    filepath.ToSlash(assetID),
		ledger:     cfg.Ledger,
		tracker:    cfg.Tracker,
		hooks:      cfg.Hooks,
		store:      cfg.Storage,
		bucket:     cfg.Bucket,
		metrics:    cfg.Metrics,
	}
	if e.ledger == nil {
		e.ledger = NewLedger()
	}
	if e.tracker == nil {
		e.tracker = NewTracker()
	}
	if e.hooks == nil {
		e.hooks = NewHooks()
	}
	if e.store == nil {
		local, err := storage.NewLocalStorage(outputPath)
		if err != nil {
			return nil, err
		}
		e.store = local
	}
	e.ledger.Register(fileName)
	e.builder = NewBuilder(opts, e.tracker, e.ledger)

	return e, nil
}

// Options returns the effective options.
func (e *Emitter) Options() Options { return e.opts }

// Tracker returns the module asset tracker fed by the host.
func (e *Emitter) Tracker() *Tracker { return e.tracker }

// Hooks returns the emit hooks.
func (e *Emitter) Hooks() *Hooks { return e.hooks }

// FileName returns the absolute manifest location.
func (e *Emitter) FileName() string { return e.fileName }

// AssetID returns the manifest location relative to the output directory.
func (e *Emitter) AssetID() string { return e.assetID }

// State returns the current lifecycle state.
func (e *Emitter) State() State {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.state
}

func (e *Emitter) setState(s State) {
	e.stateMu.Lock()
	e.state = s
	e.stateMu.Unlock()
}

// BeforeRun starts a pass. On a cold start any previous in-memory manifest
// for this path is discarded; when persisting, the existing file is checked
// so it can be reported as stale. It must return before the host continues.
func (e *Emitter) BeforeRun(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.beginLocked(ctx)
}

func (e *Emitter) beginLocked(ctx context.Context) error {
	if e.state != StateIdle {
		log.Debug().
			Str("manifest", e.assetID).
			Str("state", e.state.String()).
			Msg("Superseding unfinished manifest pass")
	}
	e.setState(StateCollecting)

	if e.ledger.ShouldReconcileWithDisk(e.fileName) {
		return nil
	}

	e.previous = nil
	if !e.opts.WriteToFileEmit {
		return nil
	}

	exists, err := e.store.Exists(ctx, e.bucket, e.assetID)
	if err != nil {
		e.setState(StateIdle)
		return fmt.Errorf("failed to check existing manifest %s: %w", e.assetID, err)
	}
	if exists {
		log.Debug().
			Str("manifest", e.fileName).
			Msg("Manifest left by a previous process will be overwritten")
	}
	return nil
}

// Emit builds, serializes and emits the manifest for c. A pass that was not
// started with BeforeRun is started implicitly. Errors from user strategies
// and storage are returned; nothing is persisted for a failed or cancelled
// pass. AfterEmit taps run once the pass is complete and may query the
// emitter.
func (e *Emitter) Emit(ctx context.Context, c Compilation) (*Artifact, error) {
	art, err := e.runPass(ctx, c)
	if err != nil {
		return nil, err
	}
	e.hooks.runAfterEmit(art.Manifest)
	return art, nil
}

func (e *Emitter) runPass(ctx context.Context, c Compilation) (*Artifact, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	ctx, span := observability.StartManifestSpan(ctx, c.ID(), e.assetID)

	art, err := e.emitLocked(ctx, c)
	e.setState(StateIdle)
	observability.EndSpan(span, err)

	if err != nil {
		e.recordPass("error", 0, 0, start)
		return nil, err
	}
	e.recordPass("success", len(art.Files), len(art.Output), start)

	log.Debug().
		Str("manifest", e.assetID).
		Str("compilation", art.CompilationID).
		Str("state", art.State.String()).
		Int("files", len(art.Files)).
		Msg("Manifest emitted")

	return art, nil
}

func (e *Emitter) emitLocked(ctx context.Context, c Compilation) (*Artifact, error) {
	if e.state == StateIdle {
		if err := e.beginLocked(ctx); err != nil {
			return nil, err
		}
	}

	res, err := e.builder.Build(c, e.opts.Seed.Clone())
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest: %w", err)
	}
	e.setState(StateBuilt)

	m := res.Manifest
	if e.opts.Merge && e.previous != nil && e.ledger.ShouldReconcileWithDisk(e.fileName) {
		m = overlay(e.previous, m)
	}
	m = e.hooks.runBeforeEmit(m)

	var keys []string
	if res.Keys != nil {
		keys = orderKeys(res.Keys, m)
	}
	out, err := serialize(e.opts.Serialize, m, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}
	e.setState(StateSerialized)

	art := &Artifact{
		CompilationID: c.ID(),
		Manifest:      m,
		Keys:          keys,
		Output:        out,
		Files:         res.Files,
		FileName:      e.fileName,
		AssetID:       e.assetID,
	}

	if e.opts.WriteToFileEmit {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAborted, err)
		}
		if err := e.persist(ctx, out); err != nil {
			return nil, err
		}
		e.ledger.RecordWrite(e.fileName)
		art.State = StatePersisted
	} else {
		art.State = StateExposedOnly
	}
	observability.SetManifestResult(ctx, len(art.Files), len(out), art.State.String())

	e.previous = m
	e.stateMu.Lock()
	e.state = art.State
	e.latest = art
	e.stateMu.Unlock()

	return art, nil
}

func (e *Emitter) persist(ctx context.Context, out []byte) error {
	backend := "custom"
	if p, ok := e.store.(storage.Provider); ok {
		backend = p.Name()
	}

	ctx, span := observability.StartStorageSpan(ctx, "upload", backend, e.assetID)
	start := time.Now()
	_, err := e.store.Upload(ctx, e.bucket, e.assetID, bytes.NewReader(out), int64(len(out)), &storage.UploadOptions{
		ContentType: ContentType(e.fileName),
	})
	observability.EndSpan(span, err)
	if e.metrics != nil {
		e.metrics.RecordWrite(backend, time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", e.fileName, err)
	}
	return nil
}

// Abort ends the current pass without emitting.
func (e *Emitter) Abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateIdle {
		log.Debug().Str("manifest", e.assetID).Msg("Manifest pass aborted")
	}
	e.setState(StateIdle)
}

// Latest returns the most recently completed artifact.
func (e *Emitter) Latest() (*Artifact, bool) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.latest, e.latest != nil
}

// Artifact returns the artifact built for compilationID if it is still the
// latest one. Older artifacts are superseded and not retained.
func (e *Emitter) Artifact(compilationID string) (*Artifact, bool) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	if e.latest == nil || e.latest.CompilationID != compilationID {
		return nil, false
	}
	return e.latest, true
}

func (e *Emitter) recordPass(result string, files, size int, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordPass(result, files, size, time.Since(start))
	}
}

// overlay returns base with every key of top written over it.
func overlay(base, top Manifest) Manifest {
	out := base.Clone()
	for k, v := range top {
		out[k] = v
	}
	return out
}

// ContentType returns the MIME type a manifest file is stored and served with.
func ContentType(name string) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
