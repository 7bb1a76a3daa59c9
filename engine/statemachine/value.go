package statemachine

import (
	"fmt"
	"strconv"

	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
)

// ValueType tags the payload of a Value.
type ValueType uint8

const (
	TypeInt ValueType = iota + 1
	TypeFloat
	TypeBool
	// TypeTrigger is a bool that is cleared after every evaluation pass.
	TypeTrigger
)

func (t ValueType) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeTrigger:
		return "trigger"
	default:
		return fmt.Sprintf("ValueType(%d)", uint8(t))
	}
}

// ParseValueType resolves a type name as printed by ValueType.String.
//
// Parameters:
//   - name: one of "int", "float", "bool" or "trigger"
//
// Returns:
//   - ValueType: the type
//   - error: ErrInvalidConfiguration for an unknown name
func ParseValueType(name string) (ValueType, error) {
	for _, t := range []ValueType{TypeInt, TypeFloat, TypeBool, TypeTrigger} {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown value type %q: %w", name, arena.ErrInvalidConfiguration)
}

func (t ValueType) numeric() bool {
	return t == TypeInt || t == TypeFloat
}

// Value is a tagged input, output or comparison value. Exactly one payload is meaningful,
// selected by Type; the accessors fail the handle contract on a type mismatch.
type Value struct {
	typ ValueType
	i   int
	f   float32
	b   bool
}

// IntValue returns an int-typed Value.
func IntValue(v int) Value { return Value{typ: TypeInt, i: v} }

// FloatValue returns a float-typed Value.
func FloatValue(v float32) Value { return Value{typ: TypeFloat, f: v} }

// BoolValue returns a bool-typed Value.
func BoolValue(v bool) Value { return Value{typ: TypeBool, b: v} }

// TriggerValue returns a trigger-typed Value.
func TriggerValue(v bool) Value { return Value{typ: TypeTrigger, b: v} }

// Zero returns the zero Value of type t.
func Zero(t ValueType) Value { return Value{typ: t} }

// Type returns the value's tag. The zero Value has type 0 and is unset.
func (v Value) Type() ValueType { return v.typ }

// Int returns the payload of an int-typed value.
func (v Value) Int() int {
	arena.Require(v.typ == TypeInt, "value of type %s read as int", v.typ)
	return v.i
}

// Float returns the payload of a float-typed value.
func (v Value) Float() float32 {
	arena.Require(v.typ == TypeFloat, "value of type %s read as float", v.typ)
	return v.f
}

// Bool returns the payload of a bool- or trigger-typed value.
func (v Value) Bool() bool {
	arena.Require(v.typ == TypeBool || v.typ == TypeTrigger, "value of type %s read as bool", v.typ)
	return v.b
}

// Number returns a numeric payload widened to float32.
func (v Value) Number() float32 {
	arena.Require(v.typ.numeric(), "value of type %s read as number", v.typ)
	if v.typ == TypeInt {
		return float32(v.i)
	}
	return v.f
}

// Any returns the payload as an untyped Go value, for introspection and encoding.
func (v Value) Any() any {
	switch v.typ {
	case TypeInt:
		return v.i
	case TypeFloat:
		return v.f
	case TypeBool, TypeTrigger:
		return v.b
	default:
		return nil
	}
}

func (v Value) String() string {
	if v.typ == 0 {
		return "unset"
	}
	return fmt.Sprintf("%s(%v)", v.typ, v.Any())
}

// As converts v to type t. Ints and floats convert into each other, bools and triggers into
// each other; any other pairing is rejected.
//
// Parameters:
//   - t: the target type
//
// Returns:
//   - Value: the converted value
//   - error: ErrInvalidConfiguration when the types are incompatible
func (v Value) As(t ValueType) (Value, error) {
	switch {
	case v.typ == t:
		return v, nil
	case t == TypeInt && v.typ == TypeFloat:
		return IntValue(int(v.f)), nil
	case t == TypeFloat && v.typ == TypeInt:
		return FloatValue(float32(v.i)), nil
	case t == TypeBool && v.typ == TypeTrigger:
		return BoolValue(v.b), nil
	case t == TypeTrigger && v.typ == TypeBool:
		return TriggerValue(v.b), nil
	}
	return Value{}, fmt.Errorf("cannot use %s as %s: %w", v, t, arena.ErrInvalidConfiguration)
}

// ParseValue parses the text form of a value of type t. Triggers accept the bool syntax.
//
// Parameters:
//   - t: the value type
//   - text: the literal, such as "3", "0.5" or "true"
//
// Returns:
//   - Value: the parsed value
//   - error: ErrInvalidConfiguration when text is not a literal of t
func ParseValue(t ValueType, text string) (Value, error) {
	switch t {
	case TypeInt:
		if i, err := strconv.Atoi(text); err == nil {
			return IntValue(i), nil
		}
	case TypeFloat:
		if f, err := strconv.ParseFloat(text, 32); err == nil {
			return FloatValue(float32(f)), nil
		}
	case TypeBool, TypeTrigger:
		if b, err := strconv.ParseBool(text); err == nil {
			return Value{typ: t, b: b}, nil
		}
	}
	return Value{}, fmt.Errorf("invalid %s literal %q: %w", t, text, arena.ErrInvalidConfiguration)
}
