package vistree

import (
	"strconv"
	"strings"

	"github.com/RalXYZ/cc99/pkg/ast"
	"github.com/RalXYZ/cc99/pkg/errors"
)

// reservedKeys are the fixed attribute names of a resolved type. Struct and
// union members with these names are only reachable through "members".
var reservedKeys = map[string]bool{
	"type":        true,
	"qualifier":   true,
	"name":        true,
	"struct_name": true,
	"union_name":  true,
	"members":     true,
	"basic_type":  true,
}

// Resolve renders a type descriptor as display attributes:
//
//	int             -> {type: "signed_Int"}
//	const char *    -> {type: "point", basic_type: {qualifier: "Const", type: "signed_Char"}}
//	int [3][4]      -> {type: "array", dimension: 2, basic_type: {type: "signed_Int"}}
//
// Struct and union members are listed in order under "members" as
// {name, type} pairs and are also flattened into the map by member name,
// except where a name collides with a fixed key. Unknown descriptors yield
// no "type" attribute.
func Resolve(bt ast.BasicType) Attrs {
	a, _ := resolver{policy: UnknownBlank}.basicType(bt)
	return a
}

// ResolveDeclaration renders a declaration type: the storage class, the
// function specifiers joined by spaces (when present) and the resolved
// basic type.
func ResolveDeclaration(t ast.Type) Attrs {
	a, _ := resolver{policy: UnknownBlank}.declaration(t)
	return a
}

type resolver struct {
	policy UnknownPolicy
}

func (r resolver) declaration(t ast.Type) (Attrs, error) {
	a := Attrs{"storageClass": t.StorageClass}
	if len(t.FunctionSpecifiers) > 0 {
		a["specifier"] = strings.Join(t.FunctionSpecifiers, " ")
	}
	bt, err := r.basicType(t.Basic)
	if err != nil {
		return nil, err
	}
	a["basic_type"] = bt
	return a, nil
}

func (r resolver) basicType(bt ast.BasicType) (Attrs, error) {
	a := Attrs{}
	if len(bt.Qualifiers) > 0 {
		a["qualifier"] = strings.Join(bt.Qualifiers, " ")
	}

	switch t := bt.Base.(type) {
	case *ast.Void:
		a["type"] = "void"
	case *ast.SignedInteger:
		a["type"] = "signed_" + t.Width
	case *ast.UnsignedInteger:
		a["type"] = "unsigned_" + t.Width
	case *ast.Bool:
		a["type"] = "bool"
	case *ast.Float:
		a["type"] = "float"
	case *ast.Double:
		a["type"] = "double"

	case *ast.Pointer:
		a["type"] = "point"
		inner, err := r.basicType(t.Elem)
		if err != nil {
			return nil, err
		}
		a["basic_type"] = inner

	case *ast.Array:
		a["type"] = "array"
		a["dimension"] = t.Dimensions
		inner, err := r.basicType(t.Elem)
		if err != nil {
			return nil, err
		}
		a["basic_type"] = inner

	case *ast.Function:
		a["type"] = "function"
		ret, err := r.basicType(t.Return)
		if err != nil {
			return nil, err
		}
		a["return_type"] = ret
		for i, p := range t.Params {
			pa, err := r.basicType(p)
			if err != nil {
				return nil, err
			}
			a["param"+strconv.Itoa(i)] = pa
		}
		a["variadic"] = t.Variadic

	case *ast.Struct:
		a["type"] = "struct"
		a["struct_name"] = optional(t.Name)
		if err := r.members(a, t.Members); err != nil {
			return nil, err
		}

	case *ast.Union:
		a["type"] = "union"
		a["union_name"] = optional(t.Name)
		if err := r.members(a, t.Members); err != nil {
			return nil, err
		}

	case *ast.NamedType:
		a["type"] = "identifier"
		a["name"] = t.Name

	default:
		tag := ""
		if bt.Base != nil {
			tag = bt.Base.Tag()
		}
		switch r.policy {
		case UnknownTagged:
			a["type"] = UnknownLabel(tag)
		case UnknownFail:
			return nil, errors.New(errors.ErrCodeUnknownVariant, "unknown type descriptor %q", tag)
		}
	}
	return a, nil
}

func (r resolver) members(a Attrs, members []ast.Member) error {
	list := make([]Attrs, 0, len(members))
	for _, m := range members {
		mt, err := r.basicType(m.Type)
		if err != nil {
			return err
		}
		list = append(list, Attrs{"name": m.Name, "type": mt})
		if !reservedKeys[m.Name] {
			a[m.Name] = mt
		}
	}
	a["members"] = list
	return nil
}

func optional(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
