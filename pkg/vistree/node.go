package vistree

// Attrs holds display metadata attached to a node. Values are strings,
// booleans, numbers, nested Attrs or []Attrs. Attrs maps produced by this
// package are never nil.
type Attrs map[string]any

// Node is one vertex of a visualization tree.
//
// Trees produced by [Build] are fresh per call and are not modified
// afterwards, so they may be shared between goroutines for reading.
type Node struct {
	ID       string  `json:"id"`       // Unique within one tree; "0" is the root
	Label    string  `json:"label"`    // Variant name, or "" for unknown variants
	Attrs    Attrs   `json:"attrs"`    // Tooltip metadata (never nil)
	Children []*Node `json:"children"` // Ordered children (never nil)
}

// Root node constants.
const (
	RootID     = "0"
	RootLabel  = "<program-root>"
	RootRemark = "AST ROOT NODE"
)

func newNode(id, label string) *Node {
	return &Node{ID: id, Label: label, Attrs: Attrs{}, Children: []*Node{}}
}

// IsRoot reports whether n is a synthetic program root.
func (n *Node) IsRoot() bool {
	return n != nil && n.ID == RootID && n.Label == RootLabel
}
