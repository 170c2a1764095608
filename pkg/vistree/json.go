package vistree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
)

// WriteJSON encodes a tree as indented JSON and writes it to w.
// The output can be read back with [ReadJSON].
func WriteJSON(root *Node, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// MarshalTree encodes a tree as compact JSON.
func MarshalTree(root *Node) ([]byte, error) {
	data, err := json.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return data, nil
}

// ReadJSON decodes a tree written by [WriteJSON] and checks it with
// [Validate]. Missing attrs and children are normalized to empty values and
// numbers are kept as json.Number.
func ReadJSON(r io.Reader) (*Node, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var root Node
	if err := dec.Decode(&root); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	Walk(&root, func(n *Node, _ int) bool {
		if n.Attrs == nil {
			n.Attrs = Attrs{}
		}
		if n.Children == nil {
			n.Children = []*Node{}
		}
		return true
	})
	if err := Validate(&root); err != nil {
		return nil, err
	}
	return &root, nil
}

// UnmarshalTree decodes a tree from JSON bytes.
func UnmarshalTree(data []byte) (*Node, error) {
	return ReadJSON(bytes.NewReader(data))
}

// ImportJSON reads a tree from a JSON file at path.
func ImportJSON(path string) (*Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// Validate checks the id invariants of a tree: every node has a numeric id,
// no child is nil, and ids strictly increase in pre-order.
func Validate(root *Node) error {
	if root == nil {
		return fmt.Errorf("empty tree")
	}
	prev := -1
	var err error
	Walk(root, func(n *Node, _ int) bool {
		if err != nil {
			return false
		}
		id, convErr := strconv.Atoi(n.ID)
		if convErr != nil {
			err = fmt.Errorf("node %q: id is not a number", n.ID)
			return false
		}
		if id <= prev {
			err = fmt.Errorf("node %q: ids must increase in pre-order (previous %d)", n.ID, prev)
			return false
		}
		prev = id
		for i, c := range n.Children {
			if c == nil {
				err = fmt.Errorf("node %q: child %d is null", n.ID, i)
				return false
			}
		}
		return true
	})
	return err
}
