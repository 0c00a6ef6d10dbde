package deploy

import (
	"errors"
	"fmt"
)

// State is a step of the deployment pipeline
type State int

const (
	StateLookingUp State = iota
	StateProvisioning
	StatePurgingKnownHost
	StateReconcilingDomain
	StateTransferring
	StateRunningLifecycle
	StateDone
	StateFailed
)

var stateNames = map[State]string{
	StateLookingUp:         "looking_up",
	StateProvisioning:      "provisioning",
	StatePurgingKnownHost:  "purging_known_host",
	StateReconcilingDomain: "reconciling_domain",
	StateTransferring:      "transferring",
	StateRunningLifecycle:  "running_lifecycle",
	StateDone:              "done",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Event is the outcome of running one state
type Event int

const (
	EventFound Event = iota
	EventNotFound
	EventSucceeded
	EventFailed
)

func (e Event) String() string {
	switch e {
	case EventFound:
		return "found"
	case EventNotFound:
		return "not_found"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("event(%d)", int(e))
	}
}

// Branch is the path chosen after lookup
type Branch string

const (
	BranchNone   Branch = ""
	BranchUpdate Branch = "update"
	BranchCreate Branch = "create"
)

// ErrInvalidTransition is returned for a (state, event) pair with no edge
var ErrInvalidTransition = errors.New("invalid pipeline transition")

// transition returns the state following s on e. Every (state, event) pair
// is matched explicitly; anything unmatched is an ErrInvalidTransition.
func transition(s State, e Event) (State, error) {
	switch s {
	case StateLookingUp:
		switch e {
		case EventFound:
			return StateTransferring, nil
		case EventNotFound:
			return StateProvisioning, nil
		case EventFailed:
			return StateFailed, nil
		}
	case StateProvisioning:
		switch e {
		case EventSucceeded:
			return StatePurgingKnownHost, nil
		case EventFailed:
			return StateFailed, nil
		}
	case StatePurgingKnownHost:
		switch e {
		case EventSucceeded:
			return StateReconcilingDomain, nil
		case EventFailed:
			return StateFailed, nil
		}
	case StateReconcilingDomain:
		switch e {
		case EventSucceeded:
			return StateTransferring, nil
		case EventFailed:
			return StateFailed, nil
		}
	case StateTransferring:
		switch e {
		case EventSucceeded:
			return StateRunningLifecycle, nil
		case EventFailed:
			return StateFailed, nil
		}
	case StateRunningLifecycle:
		switch e {
		case EventSucceeded:
			return StateDone, nil
		case EventFailed:
			return StateFailed, nil
		}
	case StateDone, StateFailed:
		return s, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, s)
	}
	return StateFailed, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, s, e)
}
