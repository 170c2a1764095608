// Package store persists converted trees as snapshots that can be shared by
// id.
//
// A snapshot is the visualization tree of one AST together with the hash of
// the input it was built from. Saving returns a uuid that the HTTP server
// and the CLI use to retrieve the tree later.
//
// # Backends
//
//   - [MemoryStore]: in-process map for development and tests
//   - [SQLiteStore]: single file database for the CLI and single-node servers
//   - [MongoStore]: shared document store for multi-instance deployments
//
// # Usage
//
//	st, err := store.OpenSQLite(path)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
//
//	snap := store.NewSnapshot(tree, input)
//	if err := st.Save(ctx, snap); err != nil {
//	    return err
//	}
//	got, err := st.Get(ctx, snap.ID)
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/RalXYZ/cc99/pkg/cache"
	"github.com/RalXYZ/cc99/pkg/errors"
	"github.com/RalXYZ/cc99/pkg/vistree"
)

// DefaultListLimit bounds List when the caller passes a non-positive limit.
const DefaultListLimit = 50

// Snapshot is a stored visualization tree.
type Snapshot struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	SourceHash string        `json:"source_hash"`
	NodeCount  int           `json:"node_count"`
	Depth      int           `json:"depth"`
	Tree       *vistree.Node `json:"tree,omitempty"`
}

// NewSnapshot creates a snapshot of tree built from input. The id and
// creation time are assigned here.
func NewSnapshot(tree *vistree.Node, input []byte) *Snapshot {
	return &Snapshot{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC(),
		SourceHash: cache.Hash(input),
		NodeCount:  vistree.Count(tree),
		Depth:      vistree.Depth(tree),
		Tree:       tree,
	}
}

// Store is the interface for snapshot storage backends.
type Store interface {
	// Save stores a snapshot. A snapshot without an id is given one.
	Save(ctx context.Context, s *Snapshot) error

	// Get retrieves a snapshot with its tree.
	// Returns a NOT_FOUND error if the snapshot doesn't exist.
	Get(ctx context.Context, id string) (*Snapshot, error)

	// List returns up to limit snapshots, newest first, without trees.
	List(ctx context.Context, limit int) ([]*Snapshot, error)

	// Delete removes a snapshot. Deleting a missing snapshot is not an error.
	Delete(ctx context.Context, id string) error

	// Close releases the backend's resources.
	Close() error
}

// prepare assigns missing fields and encodes the tree for storage.
func prepare(s *Snapshot) ([]byte, error) {
	if s == nil || s.Tree == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "snapshot has no tree")
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.NodeCount == 0 {
		s.NodeCount = vistree.Count(s.Tree)
		s.Depth = vistree.Depth(s.Tree)
	}
	return vistree.MarshalTree(s.Tree)
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeNotFound, "snapshot %s not found", id)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}
