package ast

// Type is the full type of a declaration: storage class and function
// specifiers around a qualified base type.
type Type struct {
	FunctionSpecifiers []string
	StorageClass       string
	Basic              BasicType
}

// BasicType is a base type annotated with its qualifiers (Const, Volatile, ...).
type BasicType struct {
	Qualifiers []string
	Base       BaseType
}

// BaseType is a C type descriptor. Like [Node], the set of implementations is
// closed and [UnknownType] covers unrecognised tags.
type BaseType interface {
	Tag() string
	baseType()
}

// Type descriptor tags, as written by the compiler. The compiler spells the
// pointer tag "Pointer"; older front ends used "Point", which the decoder
// also accepts.
const (
	TypeTagVoid            = "Void"
	TypeTagSignedInteger   = "SignedInteger"
	TypeTagUnsignedInteger = "UnsignedInteger"
	TypeTagBool            = "Bool"
	TypeTagFloat           = "Float"
	TypeTagDouble          = "Double"
	TypeTagPointer         = "Pointer"
	TypeTagArray           = "Array"
	TypeTagFunction        = "Function"
	TypeTagStruct          = "Struct"
	TypeTagUnion           = "Union"
	TypeTagIdentifier      = "Identifier"

	typeTagPointerLegacy = "Point"
)

func isKnownTypeTag(tag string) bool {
	switch tag {
	case TypeTagSignedInteger, TypeTagUnsignedInteger, TypeTagPointer, typeTagPointerLegacy,
		TypeTagArray, TypeTagFunction, TypeTagStruct, TypeTagUnion, TypeTagIdentifier:
		return true
	}
	return false
}

type Void struct{}

// SignedInteger is a signed integer type; Width is the raw width name
// ("Int", "Char", "LongLong", ...).
type SignedInteger struct {
	Width string
}

type UnsignedInteger struct {
	Width string
}

type Bool struct{}

type Float struct{}

type Double struct{}

type Pointer struct {
	Elem BasicType
}

// Array is an array type with Dimensions levels of subscripts.
type Array struct {
	Elem       BasicType
	Dimensions int
}

type Function struct {
	Return   BasicType
	Params   []BasicType
	Variadic bool
}

// Member is a struct or union member.
type Member struct {
	Name string
	Type BasicType
}

// Struct is a struct type. Name is nil for anonymous structs and Members is
// nil for incomplete (forward) declarations.
type Struct struct {
	Name    *string
	Members []Member
}

type Union struct {
	Name    *string
	Members []Member
}

// NamedType is a type referenced by a typedef name.
type NamedType struct {
	Name string
}

// UnknownType holds a type descriptor whose tag is not recognised.
type UnknownType struct {
	Name string
}

func (*Void) Tag() string            { return TypeTagVoid }
func (*SignedInteger) Tag() string   { return TypeTagSignedInteger }
func (*UnsignedInteger) Tag() string { return TypeTagUnsignedInteger }
func (*Bool) Tag() string            { return TypeTagBool }
func (*Float) Tag() string           { return TypeTagFloat }
func (*Double) Tag() string          { return TypeTagDouble }
func (*Pointer) Tag() string         { return TypeTagPointer }
func (*Array) Tag() string           { return TypeTagArray }
func (*Function) Tag() string        { return TypeTagFunction }
func (*Struct) Tag() string          { return TypeTagStruct }
func (*Union) Tag() string           { return TypeTagUnion }
func (*NamedType) Tag() string       { return TypeTagIdentifier }
func (u *UnknownType) Tag() string   { return u.Name }

func (*Void) baseType()            {}
func (*SignedInteger) baseType()   {}
func (*UnsignedInteger) baseType() {}
func (*Bool) baseType()            {}
func (*Float) baseType()           {}
func (*Double) baseType()          {}
func (*Pointer) baseType()         {}
func (*Array) baseType()           {}
func (*Function) baseType()        {}
func (*Struct) baseType()          {}
func (*Union) baseType()           {}
func (*NamedType) baseType()       {}
func (*UnknownType) baseType()     {}
