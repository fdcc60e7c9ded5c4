package calls

import "time"

// CallRecord tracks one PBX call across its webhook lifecycle.
//
// Invariant: CallID is globally unique; exactly one record exists per
// provider call no matter how many webhook events reference it.
//
// NOTE: Contact fields are a denormalized snapshot of the CRM match at
// enrichment time, not a foreign key. The CRM remains the source of truth.

type CallRecord struct {
	CallID    string    `json:"call_id" db:"call_id"`
	Extension string    `json:"extension" db:"extension"`
	Direction Direction `json:"direction" db:"direction"`

	CallerNumber string `json:"caller_number" db:"caller_number"`
	CalledNumber string `json:"called_number" db:"called_number"`

	// NormalizedPhone is the canonical form of the external party's number.
	NormalizedPhone string `json:"normalized_phone,omitempty" db:"normalized_phone"`

	State State `json:"state" db:"state"`

	ContactID      string `json:"contact_id,omitempty" db:"contact_id"`
	ContactName    string `json:"contact_name,omitempty" db:"contact_name"`
	ContactCompany string `json:"contact_company,omitempty" db:"contact_company"`
	ContactEmail   string `json:"contact_email,omitempty" db:"contact_email"`
	ContactType    string `json:"contact_type,omitempty" db:"contact_type"`

	StartTime time.Time  `json:"start_time" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" db:"end_time"`

	// DurationSeconds is nil until hangup, and stays nil when the start
	// time is missing or clock skew would make it negative.
	DurationSeconds *int `json:"duration_seconds,omitempty" db:"duration_seconds"`

	PopupSent        bool   `json:"popup_sent" db:"popup_sent"`
	CallHistoryCount int    `json:"call_history_count" db:"call_history_count"`
	RecordingURL     string `json:"recording_url,omitempty" db:"recording_url"`
	Notes            string `json:"notes,omitempty" db:"notes"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type State string

const (
	StateInitiated State = "initiated"
	StateRinging   State = "ringing"
	StateConnected State = "connected"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateBusy      State = "busy"
	StateNoAnswer  State = "no_answer"
)

// Rank orders states for the monotonic-transition check. All terminal
// states share the top rank; the first terminal to land wins.
func (s State) Rank() int {
	switch s {
	case StateInitiated:
		return 0
	case StateRinging:
		return 1
	case StateConnected:
		return 2
	case StateCompleted, StateFailed, StateBusy, StateNoAnswer:
		return 3
	default:
		return 0
	}
}

func (s State) Terminal() bool {
	return s.Rank() == 3
}

// ContactSnapshot is the subset of CRM contact data denormalized onto a call.
type ContactSnapshot struct {
	ID      string
	Name    string
	Company string
	Email   string
	Type    string
}
