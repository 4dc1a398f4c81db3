package model

import "fmt"

// Action is the dispatch decision for one time step.
type Action int

const (
	ActionIdle Action = iota
	ActionCharge
	ActionDischarge
)

// Actions lists every action in declaration order.
var Actions = []Action{ActionIdle, ActionCharge, ActionDischarge}

// String returns the lowercase name used in traces and exports.
func (a Action) String() string {
	switch a {
	case ActionIdle:
		return "idle"
	case ActionCharge:
		return "charge"
	case ActionDischarge:
		return "discharge"
	default:
		return "unknown"
	}
}

// ParseAction converts a name produced by String back to an Action.
func ParseAction(s string) (Action, error) {
	switch s {
	case "idle":
		return ActionIdle, nil
	case "charge":
		return ActionCharge, nil
	case "discharge":
		return ActionDischarge, nil
	default:
		return ActionIdle, fmt.Errorf("unknown action %q", s)
	}
}

// MarshalText encodes the action by name.
func (a Action) MarshalText() ([]byte, error) {
	if a < ActionIdle || a > ActionDischarge {
		return nil, fmt.Errorf("invalid action %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action name.
func (a *Action) UnmarshalText(b []byte) error {
	v, err := ParseAction(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
