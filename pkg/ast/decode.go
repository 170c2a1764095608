package ast

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"
)

// DefaultMaxDepth bounds how deeply nodes and types may nest before decoding
// fails. Real programs stay far below it.
const DefaultMaxDepth = 1000

// MaxDepthLimit is the largest accepted DecodeOptions.MaxDepth. A tree built
// from input at this depth still serializes within encoding/json's nesting
// limit, so it can be cached, stored and read back.
const MaxDepthLimit = 3000

// DecodeOptions configures decoding.
type DecodeOptions struct {
	// MaxDepth is the maximum nesting of nodes and types. Zero means
	// DefaultMaxDepth; larger values are capped at MaxDepthLimit.
	MaxDepth int
}

func (o DecodeOptions) maxDepth() int {
	switch {
	case o.MaxDepth <= 0:
		return DefaultMaxDepth
	case o.MaxDepth > MaxDepthLimit:
		return MaxDepthLimit
	}
	return o.MaxDepth
}

// DecodeUnit decodes a compiler result into a translation unit.
//
// Three envelopes are accepted:
//
//	{"GlobalDeclaration": [...]}
//	{"error": true, "message": "..."}
//	{"error": false, "message": "", "ast": {"GlobalDeclaration": [...]}}
//
// A failure envelope yields a *CompileError. Anything else that does not
// match the serializer's output yields a *MalformedInputError.
func DecodeUnit(data []byte, opts DecodeOptions) (*Unit, error) {
	v, err := parse(data)
	if err != nil {
		return nil, err
	}
	d := decoder{maxDepth: opts.maxDepth()}
	return d.unit(v, nil)
}

// DecodeNode decodes a single serialized node. A JSON null yields a nil Node.
func DecodeNode(data []byte, opts DecodeOptions) (Node, error) {
	v, err := parse(data)
	if err != nil {
		return nil, err
	}
	d := decoder{maxDepth: opts.maxDepth()}
	return d.node(v, nil, 0)
}

// parse reads the whole input once. The decoder then walks the generic value
// instead of re-scanning raw bytes at every level.
func parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, malformed("", "invalid JSON: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, malformed("", "trailing data after the JSON value")
	}
	return v, nil
}

// path locates a value for error messages. It is only rendered when decoding
// fails.
type path struct {
	parent *path
	key    string
	idx    int
}

func (p *path) field(key string) *path { return &path{parent: p, key: key, idx: -1} }
func (p *path) at(i int) *path         { return &path{parent: p, idx: i} }

func (p *path) String() string {
	var segs []*path
	for q := p; q != nil; q = q.parent {
		segs = append(segs, q)
	}
	var b strings.Builder
	for i := len(segs) - 1; i >= 0; i-- {
		s := segs[i]
		if s.idx >= 0 {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.idx))
			b.WriteByte(']')
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s.key)
	}
	return b.String()
}

func fail(p *path, format string, args ...any) error {
	return malformed(p.String(), format, args...)
}

type decoder struct {
	maxDepth int
}

func (d decoder) unit(v any, p *path) (*Unit, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fail(p, "input is not a JSON object")
	}

	if raw, ok := obj["error"]; ok {
		failed, ok := raw.(bool)
		if !ok {
			return nil, fail(p.field("error"), "expected a boolean")
		}
		if failed {
			msg, _ := obj["message"].(string)
			return nil, &CompileError{Message: msg}
		}
	}

	if inner, ok := obj["ast"]; ok {
		if _, direct := obj["GlobalDeclaration"]; !direct {
			return d.unit(inner, p.field("ast"))
		}
	}

	raw, ok := obj["GlobalDeclaration"]
	if !ok {
		return nil, fail(p, "missing GlobalDeclaration")
	}
	items, err := d.list(raw, p.field("GlobalDeclaration"), 0)
	if err != nil {
		return nil, err
	}
	return &Unit{GlobalDeclaration: items}, nil
}

// list decodes a JSON array of nodes. Null entries are kept as nil Nodes so
// callers see the original positions.
func (d decoder) list(v any, p *path, depth int) ([]Node, error) {
	elems, ok := v.([]any)
	if !ok {
		return nil, fail(p, "expected a sequence")
	}
	out := make([]Node, len(elems))
	for i, e := range elems {
		n, err := d.node(e, p.at(i), depth)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (d decoder) node(v any, p *path, depth int) (Node, error) {
	if depth > d.maxDepth {
		return nil, fail(p, "nesting exceeds %d levels", d.maxDepth)
	}
	if v == nil {
		return nil, nil
	}

	tag, payload, bare, err := variant(v, p)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TagBreak, TagContinue, TagEmpty:
		if payload != nil {
			return nil, fail(p.field(tag), "unit variant takes no payload")
		}
		switch tag {
		case TagBreak:
			return &Break{}, nil
		case TagContinue:
			return &Continue{}, nil
		}
		return &Empty{}, nil
	}
	if bare {
		if isKnownTag(tag) {
			return nil, fail(p, "variant %s needs a payload", tag)
		}
		return &Unknown{Name: tag}, nil
	}

	p = p.field(tag)
	depth++

	switch tag {
	case TagDeclaration:
		f, err := tuple(payload, p, 3)
		if err != nil {
			return nil, err
		}
		typ, err := d.typ(f[0], p.at(0), depth)
		if err != nil {
			return nil, err
		}
		name, err := optString(f[1], p.at(1))
		if err != nil {
			return nil, err
		}
		init, err := d.node(f[2], p.at(2), depth)
		if err != nil {
			return nil, err
		}
		return &Declaration{Type: typ, Name: name, Init: init}, nil

	case TagFunctionDefinition:
		f, err := tuple(payload, p, 7)
		if err != nil {
			return nil, err
		}
		fn := &FunctionDefinition{}
		if fn.Specifiers, err = stringList(f[0], p.at(0)); err != nil {
			return nil, err
		}
		if fn.StorageClass, err = str(f[1], p.at(1)); err != nil {
			return nil, err
		}
		if fn.ReturnType, err = d.basicType(f[2], p.at(2), depth); err != nil {
			return nil, err
		}
		if fn.Name, err = str(f[3], p.at(3)); err != nil {
			return nil, err
		}
		params, ok := f[4].([]any)
		if !ok {
			return nil, fail(p.at(4), "expected a sequence")
		}
		for i, raw := range params {
			pp := p.at(4).at(i)
			pf, err := tuple(raw, pp, 2)
			if err != nil {
				return nil, err
			}
			bt, err := d.basicType(pf[0], pp.at(0), depth)
			if err != nil {
				return nil, err
			}
			name, err := optString(pf[1], pp.at(1))
			if err != nil {
				return nil, err
			}
			param := Param{Type: bt}
			if name != nil {
				param.Name = *name
			}
			fn.Params = append(fn.Params, param)
		}
		if fn.Variadic, err = boolean(f[5], p.at(5)); err != nil {
			return nil, err
		}
		if fn.Body, err = d.node(f[6], p.at(6), depth); err != nil {
			return nil, err
		}
		return fn, nil

	case TagLabeled:
		f, err := tuple(payload, p, 2)
		if err != nil {
			return nil, err
		}
		name, err := str(f[0], p.at(0))
		if err != nil {
			return nil, err
		}
		stmt, err := d.node(f[1], p.at(1), depth)
		if err != nil {
			return nil, err
		}
		return &Labeled{Name: name, Stmt: stmt}, nil

	case TagCase:
		f, err := tuple(payload, p, 2)
		if err != nil {
			return nil, err
		}
		expr, err := d.node(f[0], p.at(0), depth)
		if err != nil {
			return nil, err
		}
		// The compiler emits a single statement; a statement list is also
		// accepted.
		var stmts []Node
		if _, isList := f[1].([]any); isList {
			if stmts, err = d.list(f[1], p.at(1), depth); err != nil {
				return nil, err
			}
		} else {
			stmt, err := d.node(f[1], p.at(1), depth)
			if err != nil {
				return nil, err
			}
			stmts = []Node{stmt}
		}
		return &Case{Expr: expr, Stmts: stmts}, nil

	case TagCompound:
		items, err := d.list(payload, p, depth)
		if err != nil {
			return nil, err
		}
		return &Compound{Items: items}, nil

	case TagExpression:
		expr, err := d.node(payload, p, depth)
		if err != nil {
			return nil, err
		}
		return &Expression{Expr: expr}, nil

	case TagIf, TagConditional:
		f, err := tuple(payload, p, 3)
		if err != nil {
			return nil, err
		}
		n, err := d.nodes(f, p, depth)
		if err != nil {
			return nil, err
		}
		if tag == TagIf {
			return &If{Cond: n[0], Then: n[1], Else: n[2]}, nil
		}
		return &Conditional{Cond: n[0], Then: n[1], Else: n[2]}, nil

	case TagSwitch, TagWhile, TagDoWhile:
		f, err := tuple(payload, p, 2)
		if err != nil {
			return nil, err
		}
		n, err := d.nodes(f, p, depth)
		if err != nil {
			return nil, err
		}
		switch tag {
		case TagSwitch:
			return &Switch{Expr: n[0], Stmt: n[1]}, nil
		case TagWhile:
			return &While{Cond: n[0], Stmt: n[1]}, nil
		default:
			return &DoWhile{Stmt: n[0], Cond: n[1]}, nil
		}

	case TagFor:
		f, err := tuple(payload, p, 4)
		if err != nil {
			return nil, err
		}
		n, err := d.nodes(f, p, depth)
		if err != nil {
			return nil, err
		}
		return &For{Init: n[0], Cond: n[1], Iter: n[2], Stmt: n[3]}, nil

	case TagReturn:
		expr, err := d.node(payload, p, depth)
		if err != nil {
			return nil, err
		}
		return &Return{Expr: expr}, nil

	case TagGoto:
		label, err := str(payload, p)
		if err != nil {
			return nil, err
		}
		return &Goto{Label: label}, nil

	case TagAssignment, TagBinary:
		f, err := tuple(payload, p, 3)
		if err != nil {
			return nil, err
		}
		op, err := str(f[0], p.at(0))
		if err != nil {
			return nil, err
		}
		lhs, err := d.node(f[1], p.at(1), depth)
		if err != nil {
			return nil, err
		}
		rhs, err := d.node(f[2], p.at(2), depth)
		if err != nil {
			return nil, err
		}
		if tag == TagAssignment {
			return &Assignment{Op: op, LHS: lhs, RHS: rhs}, nil
		}
		return &Binary{Op: op, LHS: lhs, RHS: rhs}, nil

	case TagUnary:
		f, err := tuple(payload, p, 2)
		if err != nil {
			return nil, err
		}
		op, err := str(f[0], p.at(0))
		if err != nil {
			return nil, err
		}
		expr, err := d.node(f[1], p.at(1), depth)
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Expr: expr}, nil

	case TagFunctionCall, TagArraySubscript:
		f, err := tuple(payload, p, 2)
		if err != nil {
			return nil, err
		}
		head, err := d.node(f[0], p.at(0), depth)
		if err != nil {
			return nil, err
		}
		rest, err := d.list(f[1], p.at(1), depth)
		if err != nil {
			return nil, err
		}
		if tag == TagFunctionCall {
			return &FunctionCall{Callee: head, Args: rest}, nil
		}
		return &ArraySubscript{Array: head, Indices: rest}, nil

	case TagTypeCast:
		f, err := tuple(payload, p, 2)
		if err != nil {
			return nil, err
		}
		bt, err := d.basicType(f[0], p.at(0), depth)
		if err != nil {
			return nil, err
		}
		expr, err := d.node(f[1], p.at(1), depth)
		if err != nil {
			return nil, err
		}
		return &TypeCast{Type: bt, Expr: expr}, nil

	case TagSizeofType:
		bt, err := d.basicType(payload, p, depth)
		if err != nil {
			return nil, err
		}
		return &SizeofType{Type: bt}, nil

	case TagMemberOfObject, TagMemberOfPointer:
		f, err := tuple(payload, p, 2)
		if err != nil {
			return nil, err
		}
		expr, err := d.node(f[0], p.at(0), depth)
		if err != nil {
			return nil, err
		}
		member, err := str(f[1], p.at(1))
		if err != nil {
			return nil, err
		}
		if tag == TagMemberOfObject {
			return &MemberOfObject{Object: expr, Member: member}, nil
		}
		return &MemberOfPointer{Pointer: expr, Member: member}, nil

	case TagIdentifier:
		name, err := str(payload, p)
		if err != nil {
			return nil, err
		}
		return &Identifier{Name: name}, nil

	case TagStringLiteral:
		s, err := str(payload, p)
		if err != nil {
			return nil, err
		}
		return &StringLiteral{Value: s}, nil

	case TagForDeclaration:
		decls, err := d.list(payload, p, depth)
		if err != nil {
			return nil, err
		}
		return &ForDeclaration{Decls: decls}, nil

	case TagLocalDeclaration:
		decl, err := d.node(payload, p, depth)
		if err != nil {
			return nil, err
		}
		return &LocalDeclaration{Decl: decl}, nil

	case TagStatement:
		stmt, err := d.node(payload, p, depth)
		if err != nil {
			return nil, err
		}
		return &Statement{Stmt: stmt}, nil
	}

	if isConstantKind(tag) {
		val, err := scalar(payload, p)
		if err != nil {
			return nil, err
		}
		return &Constant{Kind: ConstantKind(tag), Value: val}, nil
	}
	raw, _ := json.Marshal(payload)
	return &Unknown{Name: tag, Raw: raw}, nil
}

func (d decoder) nodes(vs []any, p *path, depth int) ([]Node, error) {
	out := make([]Node, len(vs))
	for i, v := range vs {
		n, err := d.node(v, p.at(i), depth)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func (d decoder) typ(v any, p *path, depth int) (Type, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return Type{}, fail(p, "expected a declaration type object")
	}
	raw, ok := obj["basic_type"]
	if !ok {
		return Type{}, fail(p, "missing basic_type")
	}
	specs, err := stringList(obj["function_specifier"], p.field("function_specifier"))
	if err != nil {
		return Type{}, err
	}
	t := Type{FunctionSpecifiers: specs}
	if sc := obj["storage_class_specifier"]; sc != nil {
		if t.StorageClass, err = str(sc, p.field("storage_class_specifier")); err != nil {
			return Type{}, err
		}
	}
	if t.Basic, err = d.basicType(raw, p.field("basic_type"), depth); err != nil {
		return Type{}, err
	}
	return t, nil
}

func (d decoder) basicType(v any, p *path, depth int) (BasicType, error) {
	if depth > d.maxDepth {
		return BasicType{}, fail(p, "nesting exceeds %d levels", d.maxDepth)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return BasicType{}, fail(p, "expected a basic type object")
	}
	raw, ok := obj["base_type"]
	if !ok || raw == nil {
		return BasicType{}, fail(p, "missing base_type")
	}
	quals, err := stringList(obj["qualifier"], p.field("qualifier"))
	if err != nil {
		return BasicType{}, err
	}
	base, err := d.baseType(raw, p.field("base_type"), depth+1)
	if err != nil {
		return BasicType{}, err
	}
	return BasicType{Qualifiers: quals, Base: base}, nil
}

func (d decoder) baseType(v any, p *path, depth int) (BaseType, error) {
	tag, payload, bare, err := variant(v, p)
	if err != nil {
		return nil, err
	}

	switch tag {
	case TypeTagVoid, TypeTagBool, TypeTagFloat, TypeTagDouble:
		if payload != nil {
			return nil, fail(p.field(tag), "unit variant takes no payload")
		}
		switch tag {
		case TypeTagVoid:
			return &Void{}, nil
		case TypeTagBool:
			return &Bool{}, nil
		case TypeTagFloat:
			return &Float{}, nil
		}
		return &Double{}, nil
	}
	if bare {
		if isKnownTypeTag(tag) {
			return nil, fail(p, "type %s needs a payload", tag)
		}
		return &UnknownType{Name: tag}, nil
	}

	p = p.field(tag)
	switch tag {
	case TypeTagSignedInteger, TypeTagUnsignedInteger:
		w, err := str(payload, p)
		if err != nil {
			return nil, err
		}
		if tag == TypeTagSignedInteger {
			return &SignedInteger{Width: w}, nil
		}
		return &UnsignedInteger{Width: w}, nil

	case TypeTagPointer, typeTagPointerLegacy:
		elem, err := d.basicType(payload, p, depth)
		if err != nil {
			return nil, err
		}
		return &Pointer{Elem: elem}, nil

	case TypeTagArray:
		f, err := tuple(payload, p, 2)
		if err != nil {
			return nil, err
		}
		elem, err := d.basicType(f[0], p.at(0), depth)
		if err != nil {
			return nil, err
		}
		dims, err := dimensions(f[1], p.at(1))
		if err != nil {
			return nil, err
		}
		return &Array{Elem: elem, Dimensions: dims}, nil

	case TypeTagFunction:
		f, err := tuple(payload, p, 3)
		if err != nil {
			return nil, err
		}
		ret, err := d.basicType(f[0], p.at(0), depth)
		if err != nil {
			return nil, err
		}
		params, ok := f[1].([]any)
		if !ok {
			return nil, fail(p.at(1), "expected a sequence")
		}
		fn := &Function{Return: ret}
		for i, raw := range params {
			bt, err := d.basicType(raw, p.at(1).at(i), depth)
			if err != nil {
				return nil, err
			}
			fn.Params = append(fn.Params, bt)
		}
		if fn.Variadic, err = boolean(f[2], p.at(2)); err != nil {
			return nil, err
		}
		return fn, nil

	case TypeTagStruct, TypeTagUnion:
		f, err := tuple(payload, p, 2)
		if err != nil {
			return nil, err
		}
		name, err := optString(f[0], p.at(0))
		if err != nil {
			return nil, err
		}
		members, err := d.members(f[1], p.at(1), depth)
		if err != nil {
			return nil, err
		}
		if tag == TypeTagStruct {
			return &Struct{Name: name, Members: members}, nil
		}
		return &Union{Name: name, Members: members}, nil

	case TypeTagIdentifier:
		name, err := str(payload, p)
		if err != nil {
			return nil, err
		}
		return &NamedType{Name: name}, nil
	}
	return &UnknownType{Name: tag}, nil
}

func (d decoder) members(v any, p *path, depth int) ([]Member, error) {
	if v == nil {
		return nil, nil
	}
	elems, ok := v.([]any)
	if !ok {
		return nil, fail(p, "expected a list of members")
	}
	out := make([]Member, 0, len(elems))
	for i, e := range elems {
		mp := p.at(i)
		obj, ok := e.(map[string]any)
		if !ok {
			return nil, fail(mp, "expected a member object")
		}
		name, _ := obj["member_name"].(string)
		bt, err := d.basicType(obj["member_type"], mp.field("member_type"), depth)
		if err != nil {
			return nil, err
		}
		out = append(out, Member{Name: name, Type: bt})
	}
	return out, nil
}

// variant splits an externally tagged value into its tag and payload. Unit
// variants are bare strings and report bare; {"Tag": null} has a nil payload
// but is not bare.
func variant(v any, p *path) (tag string, payload any, bare bool, err error) {
	switch x := v.(type) {
	case string:
		return x, nil, true, nil
	case map[string]any:
		if len(x) != 1 {
			return "", nil, false, fail(p, "variant object has %d keys, want 1", len(x))
		}
		for tag, payload := range x {
			return tag, payload, false, nil
		}
	}
	return "", nil, false, fail(p, "expected a variant object or tag string")
}

func tuple(v any, p *path, n int) ([]any, error) {
	elems, ok := v.([]any)
	if !ok {
		return nil, fail(p, "expected a sequence")
	}
	if len(elems) != n {
		return nil, fail(p, "expected %d fields, got %d", n, len(elems))
	}
	return elems, nil
}

func str(v any, p *path) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fail(p, "expected a string")
	}
	return s, nil
}

func optString(v any, p *path) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s, err := str(v, p)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func boolean(v any, p *path) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fail(p, "expected a boolean")
	}
	return b, nil
}

// stringList reads a list of strings. null or an absent key is an empty list.
func stringList(v any, p *path) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	elems, ok := v.([]any)
	if !ok {
		return nil, fail(p, "expected a list of strings")
	}
	out := make([]string, len(elems))
	for i, e := range elems {
		s, ok := e.(string)
		if !ok {
			return nil, fail(p.at(i), "expected a string")
		}
		out[i] = s
	}
	return out, nil
}

// scalar checks a literal payload. Numbers stay json.Number so 64-bit
// integers survive unchanged.
func scalar(v any, p *path) (any, error) {
	switch v.(type) {
	case json.Number, string, bool, nil:
		return v, nil
	}
	return nil, fail(p, "literal must be a scalar")
}

// dimensions reads an array's dimension list. The compiler writes one
// expression per dimension; a plain count is also accepted.
func dimensions(v any, p *path) (int, error) {
	switch x := v.(type) {
	case []any:
		return len(x), nil
	case json.Number:
		n, err := strconv.Atoi(x.String())
		if err == nil && n >= 0 {
			return n, nil
		}
	}
	return 0, fail(p, "expected dimension list or count")
}
