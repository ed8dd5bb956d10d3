package manifest

// Chunk is a host build unit and the files it emitted.
type Chunk struct {
	ID   string
	Name string
	// Files are asset names relative to the output directory
	Files []string
	// AuxiliaryFiles are files that belong to the chunk without being part
	// of it, such as source maps
	AuxiliaryFiles []string
	// Initial is true when the chunk is loaded on page load
	Initial bool
}

// Asset is one emitted file known to the compilation.
type Asset struct {
	Name string
	// Chunks lists the IDs of the chunks owning the asset
	Chunks []string
	// SourceFilename is set by hosts that know which source file was copied
	// to produce the asset
	SourceFilename string
}

// Entrypoints maps entry names to the asset files they produced.
type Entrypoints map[string][]string

// Compilation is the state of one finished pass as delivered by the host.
type Compilation interface {
	ID() string
	OutputPath() string
	PublicPath() string
	Chunks() []Chunk
	Assets() []Asset
	Entrypoints() Entrypoints
}

// StaticCompilation is a Compilation backed by plain values.
type StaticCompilation struct {
	CompilationID string
	Output        string
	Public        string
	ChunkList     []Chunk
	AssetList     []Asset
	Entries       Entrypoints
}

func (c *StaticCompilation) ID() string { return c.CompilationID }
func (c *StaticCompilation) OutputPath() string { return c.Output }
func (c *StaticCompilation) PublicPath() string { return c.Public }
func (c *StaticCompilation) Chunks() []Chunk { return c.ChunkList }
func (c *StaticCompilation) Assets() []Asset { return c.AssetList }
func (c *StaticCompilation) Entrypoints() Entrypoints { return c.Entries }
