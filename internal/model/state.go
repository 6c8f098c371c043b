package model

import (
	"fmt"
	"strings"
)

// State is the lifecycle stage of a toast.
type State int

const (
	// StatePending means the toast is inserted but not yet revealed.
	StatePending State = iota
	// StateVisible means the toast is shown and its countdown runs.
	StateVisible
	// StatePaused means the pointer is over the toast and the countdown is frozen.
	StatePaused
	// StateClosing means the exit transition is playing.
	StateClosing
	// StateDestroyed means the toast has been removed.
	StateDestroyed
)

// transitions lists the states reachable from each state.
var transitions = map[State][]State{
	StatePending:   {StateVisible, StateClosing},
	StateVisible:   {StatePaused, StateClosing},
	StatePaused:    {StateVisible, StateClosing},
	StateClosing:   {StateDestroyed},
	StateDestroyed: nil,
}

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateVisible:
		return "visible"
	case StatePaused:
		return "paused"
	case StateClosing:
		return "closing"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// CanTransition reports whether moving from s to next is allowed.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Stacked reports whether a toast in this state occupies a stack position.
func (s State) Stacked() bool {
	return s == StateVisible || s == StatePaused
}

// Live reports whether the toast can still be closed.
func (s State) Live() bool {
	return s == StatePending || s == StateVisible || s == StatePaused
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for st := StatePending; st <= StateDestroyed; st++ {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", name)
}

// CloseReason records why a toast left the stack.
type CloseReason uint32

const (
	// ReasonExpired indicates the countdown reached zero.
	ReasonExpired CloseReason = 1
	// ReasonDismissed indicates the user activated the dismiss control.
	ReasonDismissed CloseReason = 2
	// ReasonClosed indicates a programmatic close.
	ReasonClosed CloseReason = 3
	// ReasonEvicted indicates the stack was full and the oldest toast made room.
	ReasonEvicted CloseReason = 4
	// ReasonReplaced indicates a newer toast of the same kind took its place.
	ReasonReplaced CloseReason = 5
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case ReasonExpired:
		return "expired"
	case ReasonDismissed:
		return "dismissed"
	case ReasonClosed:
		return "closed"
	case ReasonEvicted:
		return "evicted"
	case ReasonReplaced:
		return "replaced"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r CloseReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *CloseReason) UnmarshalText(text []byte) error {
	reason, err := ParseCloseReason(string(text))
	if err != nil {
		return err
	}
	*r = reason
	return nil
}

// ParseCloseReason resolves a reason name.
func ParseCloseReason(s string) (CloseReason, error) {
	switch strings.ToLower(s) {
	case "expired":
		return ReasonExpired, nil
	case "dismissed":
		return ReasonDismissed, nil
	case "closed", "":
		return ReasonClosed, nil
	case "evicted":
		return ReasonEvicted, nil
	case "replaced":
		return ReasonReplaced, nil
	default:
		return 0, fmt.Errorf("unknown close reason %q", s)
	}
}
