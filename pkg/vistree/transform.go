package vistree

import (
	"strconv"
	"strings"

	"github.com/RalXYZ/cc99/pkg/ast"
	"github.com/RalXYZ/cc99/pkg/errors"
)

// transformer carries the state of a single conversion.
type transformer struct {
	resolver
	counter int
}

func (t *transformer) next() string {
	id := strconv.Itoa(t.counter)
	t.counter++
	return id
}

type frame struct {
	parent *Node
	node   ast.Node
}

// run converts items into children of root. The walk uses an explicit stack:
// children are pushed in reverse so they pop in source order, and each node
// takes its id when popped, which yields pre-order numbering.
func (t *transformer) run(root *Node, items []ast.Node) error {
	var stack []frame
	push := func(parent *Node, nodes []ast.Node) {
		for i := len(nodes) - 1; i >= 0; i-- {
			if nodes[i] != nil {
				stack = append(stack, frame{parent: parent, node: nodes[i]})
			}
		}
	}

	push(root, items)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n, children, err := t.visit(f.node)
		if err != nil {
			return err
		}
		f.parent.Children = append(f.parent.Children, n)
		push(n, children)
	}
	return nil
}

// visit builds the node for one AST variant and returns the sub-nodes to
// convert as its children, in order. Nil entries are dropped by the caller.
func (t *transformer) visit(an ast.Node) (*Node, []ast.Node, error) {
	n := newNode(t.next(), an.Tag())

	switch v := an.(type) {
	case *ast.Declaration:
		attrs, err := t.declaration(v.Type)
		if err != nil {
			return nil, nil, err
		}
		n.Attrs = attrs
		if v.Name != nil {
			n.Attrs["name"] = *v.Name
		} else {
			n.Attrs["name"] = nil
		}
		return n, []ast.Node{v.Init}, nil

	case *ast.FunctionDefinition:
		n.Label = "Function"
		ret, err := t.basicType(v.ReturnType)
		if err != nil {
			return nil, nil, err
		}
		params := Attrs{}
		anon := 1
		for _, p := range v.Params {
			pt, err := t.basicType(p.Type)
			if err != nil {
				return nil, nil, err
			}
			name := p.Name
			if name == "" {
				name = "anony_var" + strconv.Itoa(anon)
				anon++
			}
			params[name] = pt
		}
		n.Attrs["name"] = v.Name
		n.Attrs["storage"] = v.StorageClass
		n.Attrs["return_type"] = ret
		n.Attrs["params"] = params
		n.Attrs["is_variadic"] = v.Variadic
		if len(v.Specifiers) > 0 {
			n.Attrs["specifier"] = strings.Join(v.Specifiers, " ")
		}
		return n, []ast.Node{v.Body}, nil

	case *ast.Labeled:
		n.Attrs["name"] = v.Name
		return n, []ast.Node{v.Stmt}, nil

	case *ast.Case:
		return n, append([]ast.Node{v.Expr}, v.Stmts...), nil

	case *ast.Compound:
		return n, v.Items, nil

	case *ast.Expression:
		return n, []ast.Node{v.Expr}, nil

	case *ast.If:
		return n, []ast.Node{v.Cond, v.Then, v.Else}, nil

	case *ast.Switch:
		return n, []ast.Node{v.Expr, v.Stmt}, nil

	case *ast.While:
		return n, []ast.Node{v.Cond, v.Stmt}, nil

	case *ast.DoWhile:
		return n, []ast.Node{v.Stmt, v.Cond}, nil

	case *ast.For:
		return n, []ast.Node{v.Init, v.Cond, v.Iter, v.Stmt}, nil

	case *ast.Break, *ast.Continue, *ast.Empty:
		return n, nil, nil

	case *ast.Return:
		return n, []ast.Node{v.Expr}, nil

	case *ast.Goto:
		n.Attrs["label"] = v.Label
		return n, nil, nil

	case *ast.Assignment:
		n.Attrs["operation"] = v.Op
		return n, []ast.Node{v.LHS, v.RHS}, nil

	case *ast.Unary:
		n.Attrs["operation"] = v.Op
		return n, []ast.Node{v.Expr}, nil

	case *ast.Binary:
		n.Attrs["operation"] = v.Op
		return n, []ast.Node{v.LHS, v.RHS}, nil

	case *ast.FunctionCall:
		return n, append([]ast.Node{v.Callee}, v.Args...), nil

	case *ast.TypeCast:
		bt, err := t.basicType(v.Type)
		if err != nil {
			return nil, nil, err
		}
		n.Attrs["basic_type"] = bt
		return n, []ast.Node{v.Expr}, nil

	case *ast.Conditional:
		return n, []ast.Node{v.Cond, v.Then, v.Else}, nil

	case *ast.SizeofType:
		bt, err := t.basicType(v.Type)
		if err != nil {
			return nil, nil, err
		}
		n.Attrs["basic_type"] = bt
		return n, nil, nil

	case *ast.MemberOfObject:
		n.Attrs["MemberName"] = v.Member
		return n, []ast.Node{v.Object}, nil

	case *ast.MemberOfPointer:
		n.Attrs["MemberName"] = v.Member
		return n, []ast.Node{v.Pointer}, nil

	case *ast.ArraySubscript:
		return n, append([]ast.Node{v.Array}, v.Indices...), nil

	case *ast.Identifier:
		n.Attrs["name"] = v.Name
		return n, nil, nil

	case *ast.Constant:
		n.Attrs["value"] = v.Value
		return n, nil, nil

	case *ast.StringLiteral:
		n.Attrs["value"] = v.Value
		return n, nil, nil

	case *ast.ForDeclaration:
		return n, v.Decls, nil

	case *ast.LocalDeclaration:
		return n, []ast.Node{v.Decl}, nil

	case *ast.Statement:
		return n, []ast.Node{v.Stmt}, nil
	}

	return t.unknown(n, an.Tag())
}

func (t *transformer) unknown(n *Node, tag string) (*Node, []ast.Node, error) {
	switch t.policy {
	case UnknownTagged:
		n.Label = UnknownLabel(tag)
		n.Attrs["tag"] = tag
	case UnknownFail:
		return nil, nil, errors.New(errors.ErrCodeUnknownVariant, "unknown AST variant %q (node %s)", tag, n.ID)
	default:
		n.Label = ""
	}
	return n, nil, nil
}
