package vistree

// WalkFunc is called for each node visited by [Walk]. depth is 0 for the
// starting node. Returning false skips the node's children.
type WalkFunc func(n *Node, depth int) bool

// Walk visits root and its descendants in pre-order without recursion.
func Walk(root *Node, fn WalkFunc) {
	if root == nil {
		return
	}
	type item struct {
		n     *Node
		depth int
	}
	stack := []item{{root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(it.n, it.depth) {
			continue
		}
		for i := len(it.n.Children) - 1; i >= 0; i-- {
			if c := it.n.Children[i]; c != nil {
				stack = append(stack, item{c, it.depth + 1})
			}
		}
	}
}

// Count returns the number of nodes in the tree.
func Count(root *Node) int {
	total := 0
	Walk(root, func(*Node, int) bool {
		total++
		return true
	})
	return total
}

// Depth returns the number of nodes on the longest root-to-leaf path.
// A lone root has depth 1; a nil tree has depth 0.
func Depth(root *Node) int {
	deepest := 0
	Walk(root, func(_ *Node, d int) bool {
		if d+1 > deepest {
			deepest = d + 1
		}
		return true
	})
	return deepest
}

// LabelCounts tallies nodes by label.
func LabelCounts(root *Node) map[string]int {
	counts := make(map[string]int)
	Walk(root, func(n *Node, _ int) bool {
		counts[n.Label]++
		return true
	})
	return counts
}

// Find returns the node with the given id, or nil.
func Find(root *Node, id string) *Node {
	var found *Node
	Walk(root, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.ID == id {
			found = n
			return false
		}
		return true
	})
	return found
}

// Path returns the nodes from root down to the node with the given id, or
// nil when no such node exists.
func Path(root *Node, id string) []*Node {
	if root == nil {
		return nil
	}
	parents := map[*Node]*Node{}
	var target *Node
	Walk(root, func(n *Node, _ int) bool {
		if target != nil {
			return false
		}
		if n.ID == id {
			target = n
			return false
		}
		for _, c := range n.Children {
			parents[c] = n
		}
		return true
	})
	if target == nil {
		return nil
	}
	var path []*Node
	for n := target; n != nil; n = parents[n] {
		path = append([]*Node{n}, path...)
	}
	return path
}
