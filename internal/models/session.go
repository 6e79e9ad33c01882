package models

import "time"

// SessionState is the lifecycle of the operator session.
type SessionState string

const (
	SessionLoading         SessionState = "loading"
	SessionAuthenticated   SessionState = "authenticated"
	SessionUnauthenticated SessionState = "unauthenticated"
)

// SessionSnapshot is a read-only view of the current session.
type SessionSnapshot struct {
	State         SessionState `json:"state"`
	User          *User        `json:"user,omitempty"`
	AccessExpires *time.Time   `json:"access_expires_at,omitempty"`
}

// LoginResult is the remote answer to a successful login.
type LoginResult struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// SensitiveAction names an operation gated by the security PIN.
type SensitiveAction string

const (
	ActionEdit     SensitiveAction = "edit"
	ActionDelete   SensitiveAction = "delete"
	ActionFinalize SensitiveAction = "finalize"
)

// Valid reports whether a is a known gated action.
func (a SensitiveAction) Valid() bool {
	switch a {
	case ActionEdit, ActionDelete, ActionFinalize:
		return true
	}
	return false
}

// GateStatus is the state of the PIN gate.
type GateStatus string

const (
	GateIdle       GateStatus = "idle"
	GateAwaiting   GateStatus = "awaiting_pin"
	GateAuthorized GateStatus = "authorized"
)

// GateState describes the pending or authorized sensitive action.
type GateState struct {
	Status      GateStatus      `json:"status"`
	ChallengeID string          `json:"challenge_id,omitempty"`
	RecordID    int64           `json:"record_id,omitempty"`
	Action      SensitiveAction `json:"action,omitempty"`
	ExpiresAt   *time.Time      `json:"expires_at,omitempty"`
}
