package auth

import (
	"encoding/json"
	"fmt"
)

// State of the authorization state machine.
type State int

const (
	StateSignedOut State = iota
	StatePendingCheck
	StateAuthorized
	StateDenied
)

func (s State) String() string {
	switch s {
	case StateSignedOut:
		return "SignedOut"
	case StatePendingCheck:
		return "PendingCheck"
	case StateAuthorized:
		return "Authorized"
	case StateDenied:
		return "Denied"
	default:
		return "Unknown"
	}
}

// MarshalJSON renders the state name.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	for _, st := range []State{StateSignedOut, StatePendingCheck, StateAuthorized, StateDenied} {
		if st.String() == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", name)
}

// Session is the derived authorization state of the current identity.
//
// A Session is a value: the machine replaces it as a whole on every
// transition and never mutates one in place.
type Session struct {
	State        State     `json:"state"`
	Identity     *Identity `json:"identity,omitempty"`
	Authorized   bool      `json:"authorized"`
	DenialReason string    `json:"denialReason,omitempty"`
}

func signedOut(reason string) Session {
	return Session{State: StateSignedOut, DenialReason: reason}
}

func pending(id Identity) Session {
	return Session{State: StatePendingCheck, Identity: &id}
}

func authorized(id Identity) Session {
	return Session{State: StateAuthorized, Identity: &id, Authorized: true}
}

func denied(id Identity, reason string) Session {
	return Session{State: StateDenied, Identity: &id, DenialReason: reason}
}
