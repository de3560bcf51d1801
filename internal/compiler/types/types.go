// Package types is the checker's internal type representation: a small
// structural/nominal hybrid model (structural for arrays/maps/objects/
// functions, nominal for struct/enum identity) used to check one module.
package types

import "strings"

type Kind int

const (
	Unknown Kind = iota
	Int
	Float
	String
	Bool
	NilType
	Void
	Any
	Array
	Map
	Object
	Struct
	Enum
	Function
	Promise
	Nullable
	Union
)

// Type is intentionally a flat struct rather than an interface hierarchy:
// the checker only ever builds a handful of shapes and this keeps equality
// and pretty-printing in one place.
type Type struct {
	Kind Kind

	Name string // Struct/Enum/named-alias identity

	Elem *Type // Array / Nullable / Promise element

	Key   *Type // Map key
	Value *Type // Map value

	Fields     map[string]*Type // Object (structural) / Struct (nominal; fields checked when an object is assigned to it)
	FieldOrder []string

	Variants map[string][]*Type // Enum: variant name -> positional field types
	VariantOrder []string

	Params  []*Type // Function
	Ret     *Type
	Variadic bool

	Members []*Type // Union
}

func Prim(k Kind) *Type { return &Type{Kind: k} }

var (
	TInt    = Prim(Int)
	TFloat  = Prim(Float)
	TString = Prim(String)
	TBool   = Prim(Bool)
	TNil    = Prim(NilType)
	TVoid   = Prim(Void)
	TAny    = Prim(Any)
)

func NewArray(elem *Type) *Type  { return &Type{Kind: Array, Elem: elem} }
func NewNullable(inner *Type) *Type {
	if inner.Kind == Nullable {
		return inner
	}
	return &Type{Kind: Nullable, Elem: inner}
}
func NewPromise(inner *Type) *Type { return &Type{Kind: Promise, Elem: inner} }
func NewMap(k, v *Type) *Type      { return &Type{Kind: Map, Key: k, Value: v} }

func NewFunction(params []*Type, ret *Type, variadic bool) *Type {
	return &Type{Kind: Function, Params: params, Ret: ret, Variadic: variadic}
}

func NewStruct(name string, fieldOrder []string, fields map[string]*Type) *Type {
	return &Type{Kind: Struct, Name: name, FieldOrder: fieldOrder, Fields: fields}
}

func NewEnum(name string, variantOrder []string, variants map[string][]*Type) *Type {
	return &Type{Kind: Enum, Name: name, VariantOrder: variantOrder, Variants: variants}
}

func NewObject(fieldOrder []string, fields map[string]*Type) *Type {
	return &Type{Kind: Object, FieldOrder: fieldOrder, Fields: fields}
}

func (t *Type) IsNullable() bool { return t.Kind == Nullable }

// Unwrap returns the inner type of a Nullable, or t itself otherwise.
func (t *Type) Unwrap() *Type {
	if t.Kind == Nullable {
		return t.Elem
	}
	return t
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Bool:
		return "bool"
	case NilType:
		return "nil"
	case Void:
		return "void"
	case Any:
		return "any"
	case Array:
		return "[" + t.Elem.String() + "]"
	case Map:
		return "map<" + t.Key.String() + ", " + t.Value.String() + ">"
	case Object:
		parts := make([]string, 0, len(t.FieldOrder))
		for _, f := range t.FieldOrder {
			parts = append(parts, f+": "+t.Fields[f].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case Struct:
		return t.Name
	case Enum:
		return t.Name
	case Function:
		parts := make([]string, 0, len(t.Params))
		for _, p := range t.Params {
			parts = append(parts, p.String())
		}
		return "fn(" + strings.Join(parts, ", ") + ") -> " + t.Ret.String()
	case Promise:
		return "Promise<" + t.Elem.String() + ">"
	case Nullable:
		return t.Elem.String() + "?"
	case Union:
		parts := make([]string, 0, len(t.Members))
		for _, m := range t.Members {
			parts = append(parts, m.String())
		}
		return strings.Join(parts, " | ")
	default:
		return "unknown"
	}
}

// AssignableTo reports whether a value of type src can be used where dst is
// expected: structural compatibility for arrays/maps/objects, nominal
// identity for struct/enum, arity plus contravariant parameter and
// covariant return types for functions, with nil assignable only to a
// Nullable or Any destination, and any -> anything / anything -> any.
func AssignableTo(src, dst *Type) bool {
	if src == nil || dst == nil {
		return true // unresolved; don't cascade errors from an earlier failure
	}
	if dst.Kind == Any || src.Kind == Any {
		return true
	}
	if dst.Kind == Nullable {
		if src.Kind == NilType {
			return true
		}
		return AssignableTo(src.Unwrap(), dst.Elem)
	}
	// Union on the actual (source) side: every constituent must be
	// compatible with expected, so the check only passes if each branch of
	// the source union could stand in for dst on its own.
	if src.Kind == Union {
		for _, m := range src.Members {
			if !AssignableTo(m, dst) {
				return false
			}
		}
		return true
	}
	// Union on the expected (destination) side: accept a value compatible
	// with any one member.
	if dst.Kind == Union {
		for _, m := range dst.Members {
			if AssignableTo(src, m) {
				return true
			}
		}
		return false
	}
	if src.Kind == NilType {
		return false
	}
	if src.Kind != dst.Kind {
		// A non-nullable value is assignable to itself only, except: int ->
		// float widening, and an object literal structurally matching a
		// struct's declared fields (how a bare `{ x: 1, y: 2 }` is accepted
		// where a `Point` is expected - the source language has no separate
		// struct-literal syntax, so literal construction is always via an
		// object expression checked structurally against the target).
		if src.Kind == Int && dst.Kind == Float {
			return true
		}
		if src.Kind == Object && dst.Kind == Struct {
			for _, name := range dst.FieldOrder {
				sf, ok := src.Fields[name]
				if !ok || !AssignableTo(sf, dst.Fields[name]) {
					return false
				}
			}
			return true
		}
		return false
	}
	switch dst.Kind {
	case Int, Float, String, Bool, Void:
		return true
	case Array:
		return AssignableTo(src.Elem, dst.Elem)
	case Map:
		return AssignableTo(src.Key, dst.Key) && AssignableTo(src.Value, dst.Value)
	case Object:
		for name, ft := range dst.Fields {
			sf, ok := src.Fields[name]
			if !ok || !AssignableTo(sf, ft) {
				return false
			}
		}
		return true
	case Struct, Enum:
		return src.Name == dst.Name
	case Promise:
		return AssignableTo(src.Elem, dst.Elem)
	case Function:
		if len(src.Params) != len(dst.Params) {
			return false
		}
		for i := range src.Params {
			if !AssignableTo(dst.Params[i], src.Params[i]) {
				return false
			}
		}
		return AssignableTo(src.Ret, dst.Ret)
	default:
		return true
	}
}
