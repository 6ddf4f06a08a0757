// Package interp evaluates a workload script's Ast against a scheduler
// handle (spec §4.3), producing EmplaceProcess/SetKnob side effects only.
package interp

import "fmt"

// ValueKind tags Value's dynamic union.
type ValueKind uint8

const (
	UnitValue ValueKind = iota
	StringValue
	NumberValue
	ListValue
)

// Value is the interpreter's dynamic union `{ String, Number, List<Value>,
// Unit }` (spec §4.3). Only the field matching Kind is populated.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	List []Value
}

func Unit() Value              { return Value{Kind: UnitValue} }
func String(s string) Value    { return Value{Kind: StringValue, Str: s} }
func Number(n float64) Value   { return Value{Kind: NumberValue, Num: n} }
func List(elems []Value) Value { return Value{Kind: ListValue, List: elems} }

func (v Value) String() string {
	switch v.Kind {
	case UnitValue:
		return "()"
	case StringValue:
		return fmt.Sprintf("%q", v.Str)
	case NumberValue:
		return fmt.Sprintf("%g", v.Num)
	case ListValue:
		return fmt.Sprintf("%v", v.List)
	default:
		return "<invalid value>"
	}
}

func (v ValueKind) String() string {
	switch v {
	case UnitValue:
		return "Unit"
	case StringValue:
		return "String"
	case NumberValue:
		return "Number"
	case ListValue:
		return "List"
	default:
		return "unknown"
	}
}
