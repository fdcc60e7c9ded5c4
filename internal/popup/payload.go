package popup

import (
	"time"

	"phonebridge/internal/calls"
)

// BuildPayload assembles the popup body for a call as the CRM screen
// expects it. Contact fields fall back to an "Unknown Caller" block when
// enrichment found no match.
func BuildPayload(call calls.CallRecord, zohoUserID string) Payload {
	phone := call.NormalizedPhone
	if phone == "" {
		phone = call.CallerNumber
	}

	contact := ContactBlock{
		Name:  "Unknown Caller",
		Phone: phone,
		Type:  "unknown",
	}
	if call.ContactName != "" {
		contact.Name = call.ContactName
		contact.Email = call.ContactEmail
		contact.Company = call.ContactCompany
		contact.Type = call.ContactType
	}

	return Payload{
		Call: CallBlock{
			ID:        call.CallID,
			From:      call.CallerNumber,
			To:        call.CalledNumber,
			Direction: string(call.Direction),
			StartTime: call.StartTime.UTC().Format(time.RFC3339),
			Status:    "ringing",
		},
		Contact: contact,
		Metadata: Metadata{
			CallHistory: CallHistory{TotalCalls: call.CallHistoryCount},
			Source:      "VitalPBX",
			Integration: "PhoneBridge",
		},
		User:    UserBlock{ID: zohoUserID},
		Actions: actionsFor(call.Direction),
	}
}

func actionsFor(direction calls.Direction) []Action {
	if direction == calls.DirectionOutbound {
		return []Action{
			{ID: "hangup", Label: "Hang Up", Type: "button", Action: "hangup_call"},
			{ID: "record", Label: "Record", Type: "toggle", Action: "toggle_recording"},
		}
	}
	return []Action{
		{ID: "answer", Label: "Answer", Type: "button", Action: "answer_call"},
		{ID: "decline", Label: "Decline", Type: "button", Action: "decline_call"},
		{ID: "record", Label: "Record", Type: "toggle", Action: "toggle_recording"},
	}
}
