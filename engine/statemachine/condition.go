package statemachine

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-anim/engine/arena"
)

const (
	// MaxOrGroups is the number of OR-groups a transition can hold.
	MaxOrGroups = 10
	// MaxAndConditions is the number of conditions an OR-group can hold.
	MaxAndConditions = 10
	// MaxTransitionsPerState bounds the transition list of a state.
	MaxTransitionsPerState = 16
	// MaxWritesPerState bounds each of the enter and leave write lists of a state.
	MaxWritesPerState = 16
)

// ConditionKind selects how a Condition is evaluated. The zero kind marks an unused slot.
type ConditionKind uint8

const (
	None ConditionKind = iota
	Equal
	Greater
	GreaterOrEqual
	Less
	LessOrEqual
	// Trigger is true while the referenced bool or trigger input is set.
	Trigger
	// IsFinished is true once the state's player has finished.
	IsFinished
	// TimeMin is true once the state has been active for at least Value seconds.
	TimeMin
	// TimeMax is true while the state has been active for at most Value seconds.
	TimeMax
)

var kindNames = [...]string{
	None:           "none",
	Equal:          "eq",
	Greater:        "gt",
	GreaterOrEqual: "ge",
	Less:           "lt",
	LessOrEqual:    "le",
	Trigger:        "trigger",
	IsFinished:     "finished",
	TimeMin:        "time_min",
	TimeMax:        "time_max",
}

func (k ConditionKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ConditionKind(%d)", uint8(k))
}

// ParseConditionKind resolves a kind name as printed by ConditionKind.String.
//
// Parameters:
//   - name: the kind name
//
// Returns:
//   - ConditionKind: the kind
//   - error: ErrInvalidConfiguration for an unknown name
func ParseConditionKind(name string) (ConditionKind, error) {
	for k, n := range kindNames {
		if n == name {
			return ConditionKind(k), nil
		}
	}
	return None, fmt.Errorf("unknown condition kind %q: %w", name, arena.ErrInvalidConfiguration)
}

func (k ConditionKind) comparison() bool {
	return k >= Equal && k <= LessOrEqual
}

func (k ConditionKind) usesInput() bool {
	return k.comparison() || k == Trigger
}

// Condition is one slot of an OR-group.
type Condition struct {
	Kind ConditionKind
	// Input is the compared input for comparison and Trigger kinds.
	Input arena.Handle
	// Value is the comparison operand, or the threshold in seconds for TimeMin and TimeMax.
	Value Value
	// Abs compares the absolute value of a numeric input.
	Abs bool
}

// TransitionData declares a guarded edge from the owning state to Target. The transition fires
// when any OR-group with at least one populated slot has all of its populated slots true.
type TransitionData struct {
	Target arena.Handle
	// Time is the cross-fade duration in seconds; 0 snaps to the target pose.
	Time       float32
	Conditions [MaxOrGroups][MaxAndConditions]Condition
}

// Populated returns the number of non-None conditions.
func (d *TransitionData) Populated() int {
	n := 0
	for g := range d.Conditions {
		for _, c := range d.Conditions[g] {
			if c.Kind != None {
				n++
			}
		}
	}
	return n
}

func compare[T int | float32](kind ConditionKind, a, b T) bool {
	switch kind {
	case Equal:
		return a == b
	case Greater:
		return a > b
	case GreaterOrEqual:
		return a >= b
	case Less:
		return a < b
	case LessOrEqual:
		return a <= b
	}
	return false
}

func compareValue(c *Condition, in Value) bool {
	switch in.typ {
	case TypeInt:
		v := in.i
		if c.Abs && v < 0 {
			v = -v
		}
		return compare(c.Kind, v, c.Value.i)
	case TypeFloat:
		v := in.f
		if c.Abs && v < 0 {
			v = -v
		}
		return compare(c.Kind, v, c.Value.f)
	default:
		return c.Kind == Equal && in.b == c.Value.b
	}
}
