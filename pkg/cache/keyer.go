package cache

// TreeKeyOpts lists the options that change a converted tree.
type TreeKeyOpts struct {
	Unknown  string `json:"unknown"`
	MaxDepth int    `json:"max_depth"`
}

// ArtifactKeyOpts lists the options that change a rendered artifact.
type ArtifactKeyOpts struct {
	Format   string `json:"format"`
	Detailed bool   `json:"detailed"`
}

// Keyer builds cache keys.
type Keyer interface {
	// CompileKey returns the key for the compiler output of a source text.
	CompileKey(sourceHash, compilerID string) string
	// TreeKey returns the key for the tree converted from an input.
	TreeKey(inputHash string, opts TreeKeyOpts) string
	// ArtifactKey returns the key for an artifact rendered from a tree.
	ArtifactKey(treeHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer builds keys of the form "kind:sha256(parts)".
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// CompileKey implements Keyer.
func (DefaultKeyer) CompileKey(sourceHash, compilerID string) string {
	return hashKey("compile", sourceHash, compilerID)
}

// TreeKey implements Keyer.
func (DefaultKeyer) TreeKey(inputHash string, opts TreeKeyOpts) string {
	return hashKey("tree", inputHash, opts)
}

// ArtifactKey implements Keyer.
func (DefaultKeyer) ArtifactKey(treeHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", treeHash, opts)
}
