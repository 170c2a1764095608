package cache

// ScopedKeyer wraps a Keyer with a prefix for namespace isolation.
// This is useful when several deployments share one Redis instance, or when
// trees built under different settings must never be served to each other.
//
// Example usage:
//
//	// Server instance keys
//	serverKeyer := NewScopedKeyer(NewDefaultKeyer(), "cc99vis:prod:")
//
//	// Local CLI keys
//	localKeyer := NewDefaultKeyer()
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// CompileKey generates a prefixed key for compiler output caching.
func (k *ScopedKeyer) CompileKey(sourceHash, compilerID string) string {
	return k.prefix + k.inner.CompileKey(sourceHash, compilerID)
}

// TreeKey generates a prefixed key for tree caching.
func (k *ScopedKeyer) TreeKey(inputHash string, opts TreeKeyOpts) string {
	return k.prefix + k.inner.TreeKey(inputHash, opts)
}

// ArtifactKey generates a prefixed key for artifact caching.
func (k *ScopedKeyer) ArtifactKey(treeHash string, opts ArtifactKeyOpts) string {
	return k.prefix + k.inner.ArtifactKey(treeHash, opts)
}
