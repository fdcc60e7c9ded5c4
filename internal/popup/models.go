package popup

import (
	"encoding/json"
	"time"
)

// Record tracks one popup attempt for one (call, CRM user) pair.
//
// Invariant: (CallID, ZohoUserID) is unique. A second dispatch for the same
// pair is marked duplicate and never reaches the CRM API; this is the core
// idempotency guarantee of the popup subsystem.
type Record struct {
	CallID     string `json:"call_id" db:"call_id"`
	ZohoUserID string `json:"zoho_user_id" db:"zoho_user_id"`
	Extension  string `json:"extension" db:"extension"`

	// Payload is the exact JSON sent to the popup API, kept for replay
	// and the retry sweep.
	Payload json.RawMessage `json:"payload" db:"payload"`

	Status Status `json:"status" db:"status"`

	SentAt         time.Time `json:"sent_at" db:"sent_at"`
	Response       string    `json:"response,omitempty" db:"response"`
	ResponseTimeMS *int      `json:"response_time_ms,omitempty" db:"response_time_ms"`
	RetryCount     int       `json:"retry_count" db:"retry_count"`
	ErrorMessage   string    `json:"error_message,omitempty" db:"error_message"`
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusRetry     Status = "retry"
	StatusDuplicate Status = "duplicate"
)

// Terminal statuses are never regressed; a sent popup stays sent.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusDuplicate
}

// Payload is the popup body in Zoho PhoneBridge format.
type Payload struct {
	Call     CallBlock    `json:"call"`
	Contact  ContactBlock `json:"contact"`
	Metadata Metadata     `json:"metadata"`
	User     UserBlock    `json:"user"`
	Actions  []Action     `json:"actions"`
}

type CallBlock struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Direction string `json:"direction"`
	StartTime string `json:"startTime"`
	Status    string `json:"status"`
}

type ContactBlock struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Type    string `json:"type"`
}

type Metadata struct {
	CallHistory CallHistory `json:"callHistory"`
	Source      string      `json:"source"`
	Integration string      `json:"integration"`
}

type CallHistory struct {
	TotalCalls int `json:"totalCalls"`
}

type UserBlock struct {
	ID string `json:"id"`
}

type Action struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Type   string `json:"type"`
	Action string `json:"action"`
}
