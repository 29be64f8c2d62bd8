package svalue

import "math"

// Type discriminates the kind of value held by a Value, or flags that a
// row carries no value at all for a given column (Invalid).
type Type uint8

const (
	// Number is a double-precision feature value.
	Number Type = iota
	// StringID is an interned string id resolved through an InternPool.
	StringID
	// Code is a non-owning reference to an evaluable-tree node.
	Code
	// Null is an explicit null/NaN-equivalent value, distinct from Invalid:
	// the row has the feature, and its value is "no value".
	Null
	// Invalid marks a row that does not carry this feature at all.
	Invalid
)

// String renders the Type for debugging and test failure messages.
func (t Type) String() string {
	switch t {
	case Number:
		return "number"
	case StringID:
		return "string"
	case Code:
		return "code"
	case Null:
		return "null"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// CodeRef is a non-owning reference to an evaluable code structure living
// in an external arena. The core never allocates, mutates, or frees these;
// it only needs deep-equality and deep-size for distance computation.
type CodeRef interface {
	// DeepEquals reports whether other represents the same code structure.
	DeepEquals(other CodeRef) bool
	// DeepSize returns the number of nodes in the structure, used both to
	// bucket code values in a column and as the edit-distance cost unit.
	DeepSize() int
}

// Value is a tagged union over the four representable kinds of feature
// value (Number, StringID, Code, Null). A row lacking the feature holds a
// Value whose Kind is Invalid, and the column also tracks it in its
// invalidRows set.
type Value struct {
	Kind     Type
	Number   float64
	StringID uint64
	Code     CodeRef
}

// Num constructs a Number value.
func Num(n float64) Value { return Value{Kind: Number, Number: n} }

// Str constructs a StringID value.
func Str(id uint64) Value { return Value{Kind: StringID, StringID: id} }

// CodeVal constructs a Code value.
func CodeVal(c CodeRef) Value { return Value{Kind: Code, Code: c} }

// NullVal is the explicit null value.
func NullVal() Value { return Value{Kind: Null} }

// IsNullEquivalent reports whether v is Null, or a Number holding NaN — the
// two "null-equivalent" representations the distance evaluator must treat
// identically per the unknown/unknown and known/unknown term rules.
func (v Value) IsNullEquivalent() bool {
	if v.Kind == Null {
		return true
	}
	return v.Kind == Number && math.IsNaN(v.Number)
}

// Equal reports whether v and other carry the same value. Code equality
// delegates to DeepEquals; StringID/Number compare the underlying union
// branch. Mismatched Kinds are never equal.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case Number:
		return v.Number == other.Number || (math.IsNaN(v.Number) && math.IsNaN(other.Number))
	case StringID:
		return v.StringID == other.StringID
	case Code:
		if v.Code == nil || other.Code == nil {
			return v.Code == other.Code
		}
		return v.Code.DeepEquals(other.Code)
	case Null:
		return true
	default:
		return false
	}
}
