// Package manifest reduces the output of a bundler compilation into an asset
// manifest: a string-keyed mapping from logical names to emitted paths.
//
// The package is host neutral. A bundler adapter supplies a Compilation for
// each pass and drives an Emitter through its lifecycle: BeforeRun when a
// pass starts and Emit once assets are final. The Emitter runs the Builder,
// serializes the result, and either persists it through a storage backend or
// keeps it in memory for other observers.
package manifest
