package ast

import "encoding/json"

// Node is a C syntax tree node. The set of implementations is closed: every
// variant emitted by the compiler has exactly one type in this package, and
// [Unknown] stands in for tags this package does not recognise.
//
// Optional children are represented by a nil Node.
type Node interface {
	// Tag returns the variant name used by the compiler's serializer.
	Tag() string
	node()
}

// Unit is a decoded translation unit.
type Unit struct {
	GlobalDeclaration []Node
}

// Variant tags, as written by the compiler.
const (
	TagDeclaration        = "Declaration"
	TagFunctionDefinition = "FunctionDefinition"
	TagLabeled            = "Labeled"
	TagCase               = "Case"
	TagCompound           = "Compound"
	TagExpression         = "Expression"
	TagIf                 = "If"
	TagSwitch             = "Switch"
	TagWhile              = "While"
	TagDoWhile            = "DoWhile"
	TagFor                = "For"
	TagBreak              = "Break"
	TagContinue           = "Continue"
	TagReturn             = "Return"
	TagGoto               = "Goto"
	TagAssignment         = "Assignment"
	TagUnary              = "Unary"
	TagBinary             = "Binary"
	TagFunctionCall       = "FunctionCall"
	TagTypeCast           = "TypeCast"
	TagConditional        = "Conditional"
	TagSizeofType         = "SizeofType"
	TagMemberOfObject     = "MemberOfObject"
	TagMemberOfPointer    = "MemberOfPointer"
	TagArraySubscript     = "ArraySubscript"
	TagIdentifier         = "Identifier"
	TagStringLiteral      = "StringLiteral"
	TagEmpty              = "Empty"
	TagForDeclaration     = "ForDeclaration"
	TagLocalDeclaration   = "LocalDeclaration"
	TagStatement          = "Statement"
)

// ConstantKind names one of the numeric and character literal variants.
type ConstantKind string

// Literal variants. Each holds a single raw value.
const (
	IntegerConstant          ConstantKind = "IntegerConstant"
	UnsignedIntegerConstant  ConstantKind = "UnsignedIntegerConstant"
	LongConstant             ConstantKind = "LongConstant"
	UnsignedLongConstant     ConstantKind = "UnsignedLongConstant"
	LongLongConstant         ConstantKind = "LongLongConstant"
	UnsignedLongLongConstant ConstantKind = "UnsignedLongLongConstant"
	CharacterConstant        ConstantKind = "CharacterConstant"
	FloatConstant            ConstantKind = "FloatConstant"
	DoubleConstant           ConstantKind = "DoubleConstant"
)

// ConstantKinds lists every literal variant in declaration order.
var ConstantKinds = []ConstantKind{
	IntegerConstant,
	UnsignedIntegerConstant,
	LongConstant,
	UnsignedLongConstant,
	LongLongConstant,
	UnsignedLongLongConstant,
	CharacterConstant,
	FloatConstant,
	DoubleConstant,
}

func isConstantKind(tag string) bool {
	for _, k := range ConstantKinds {
		if string(k) == tag {
			return true
		}
	}
	return false
}

var payloadTags = map[string]bool{
	TagDeclaration: true, TagFunctionDefinition: true, TagLabeled: true,
	TagCase: true, TagCompound: true, TagExpression: true, TagIf: true,
	TagSwitch: true, TagWhile: true, TagDoWhile: true, TagFor: true,
	TagReturn: true, TagGoto: true, TagAssignment: true, TagUnary: true,
	TagBinary: true, TagFunctionCall: true, TagTypeCast: true,
	TagConditional: true, TagSizeofType: true, TagMemberOfObject: true,
	TagMemberOfPointer: true, TagArraySubscript: true, TagIdentifier: true,
	TagStringLiteral: true, TagForDeclaration: true,
	TagLocalDeclaration: true, TagStatement: true,
}

// isKnownTag reports whether tag names a variant that carries a payload.
func isKnownTag(tag string) bool {
	return payloadTags[tag] || isConstantKind(tag)
}

// Declaration declares a variable, typedef or tagged type. Name is nil for
// anonymous struct/union declarations.
type Declaration struct {
	Type Type
	Name *string
	Init Node
}

// Param is a function parameter. Name is empty for unnamed parameters.
type Param struct {
	Type BasicType
	Name string
}

// FunctionDefinition is a function with a body.
type FunctionDefinition struct {
	Specifiers   []string
	StorageClass string
	ReturnType   BasicType
	Name         string
	Params       []Param
	Variadic     bool
	Body         Node
}

type Labeled struct {
	Name string
	Stmt Node
}

// Case is a switch case; Expr is nil for the default label.
type Case struct {
	Expr  Node
	Stmts []Node
}

type Compound struct {
	Items []Node
}

type Expression struct {
	Expr Node
}

type If struct {
	Cond Node
	Then Node
	Else Node
}

type Switch struct {
	Expr Node
	Stmt Node
}

type While struct {
	Cond Node
	Stmt Node
}

type DoWhile struct {
	Stmt Node
	Cond Node
}

type For struct {
	Init Node
	Cond Node
	Iter Node
	Stmt Node
}

type Break struct{}

type Continue struct{}

type Return struct {
	Expr Node
}

type Goto struct {
	Label string
}

type Assignment struct {
	Op  string
	LHS Node
	RHS Node
}

type Unary struct {
	Op   string
	Expr Node
}

type Binary struct {
	Op  string
	LHS Node
	RHS Node
}

type FunctionCall struct {
	Callee Node
	Args   []Node
}

type TypeCast struct {
	Type BasicType
	Expr Node
}

type Conditional struct {
	Cond Node
	Then Node
	Else Node
}

type SizeofType struct {
	Type BasicType
}

type MemberOfObject struct {
	Object Node
	Member string
}

type MemberOfPointer struct {
	Pointer Node
	Member  string
}

type ArraySubscript struct {
	Array   Node
	Indices []Node
}

type Identifier struct {
	Name string
}

// Constant is one of the nine literal variants. Value holds the raw decoded
// JSON scalar: a json.Number for numeric kinds, a string for characters.
type Constant struct {
	Kind  ConstantKind
	Value any
}

type StringLiteral struct {
	Value string
}

type Empty struct{}

type ForDeclaration struct {
	Decls []Node
}

type LocalDeclaration struct {
	Decl Node
}

type Statement struct {
	Stmt Node
}

// Unknown holds a variant whose tag is not recognised. Raw keeps the payload
// for diagnostics.
type Unknown struct {
	Name string
	Raw  json.RawMessage
}

func (*Declaration) Tag() string        { return TagDeclaration }
func (*FunctionDefinition) Tag() string { return TagFunctionDefinition }
func (*Labeled) Tag() string            { return TagLabeled }
func (*Case) Tag() string               { return TagCase }
func (*Compound) Tag() string           { return TagCompound }
func (*Expression) Tag() string         { return TagExpression }
func (*If) Tag() string                 { return TagIf }
func (*Switch) Tag() string             { return TagSwitch }
func (*While) Tag() string              { return TagWhile }
func (*DoWhile) Tag() string            { return TagDoWhile }
func (*For) Tag() string                { return TagFor }
func (*Break) Tag() string              { return TagBreak }
func (*Continue) Tag() string           { return TagContinue }
func (*Return) Tag() string             { return TagReturn }
func (*Goto) Tag() string               { return TagGoto }
func (*Assignment) Tag() string         { return TagAssignment }
func (*Unary) Tag() string              { return TagUnary }
func (*Binary) Tag() string             { return TagBinary }
func (*FunctionCall) Tag() string       { return TagFunctionCall }
func (*TypeCast) Tag() string           { return TagTypeCast }
func (*Conditional) Tag() string        { return TagConditional }
func (*SizeofType) Tag() string         { return TagSizeofType }
func (*MemberOfObject) Tag() string     { return TagMemberOfObject }
func (*MemberOfPointer) Tag() string    { return TagMemberOfPointer }
func (*ArraySubscript) Tag() string     { return TagArraySubscript }
func (*Identifier) Tag() string         { return TagIdentifier }
func (c *Constant) Tag() string         { return string(c.Kind) }
func (*StringLiteral) Tag() string      { return TagStringLiteral }
func (*Empty) Tag() string              { return TagEmpty }
func (*ForDeclaration) Tag() string     { return TagForDeclaration }
func (*LocalDeclaration) Tag() string   { return TagLocalDeclaration }
func (*Statement) Tag() string          { return TagStatement }
func (u *Unknown) Tag() string          { return u.Name }

func (*Declaration) node()        {}
func (*FunctionDefinition) node() {}
func (*Labeled) node()            {}
func (*Case) node()               {}
func (*Compound) node()           {}
func (*Expression) node()         {}
func (*If) node()                 {}
func (*Switch) node()             {}
func (*While) node()              {}
func (*DoWhile) node()            {}
func (*For) node()                {}
func (*Break) node()              {}
func (*Continue) node()           {}
func (*Return) node()             {}
func (*Goto) node()               {}
func (*Assignment) node()         {}
func (*Unary) node()              {}
func (*Binary) node()             {}
func (*FunctionCall) node()       {}
func (*TypeCast) node()           {}
func (*Conditional) node()        {}
func (*SizeofType) node()         {}
func (*MemberOfObject) node()     {}
func (*MemberOfPointer) node()    {}
func (*ArraySubscript) node()     {}
func (*Identifier) node()         {}
func (*Constant) node()           {}
func (*StringLiteral) node()      {}
func (*Empty) node()              {}
func (*ForDeclaration) node()     {}
func (*LocalDeclaration) node()   {}
func (*Statement) node()          {}
func (*Unknown) node()            {}
