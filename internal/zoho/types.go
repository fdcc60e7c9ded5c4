package zoho

import "strings"

// Contact is one CRM record matched by a phone search. Module tells which
// CRM module it came from ("Contacts", "Leads", ...).
type Contact struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Module  string `json:"module"`
}

// modulePriority ranks CRM modules for popup display: a known contact beats
// a lead, a lead beats anything else.
func modulePriority(module string) int {
	switch strings.ToLower(strings.TrimSuffix(module, "s")) {
	case "contact":
		return 0
	case "lead":
		return 1
	default:
		return 2
	}
}

// BestMatch selects the record to show when a phone search returns several.
// Priority is contact > lead > other; ties break to the first returned.
func BestMatch(records []Contact) (Contact, bool) {
	if len(records) == 0 {
		return Contact{}, false
	}
	best := records[0]
	for _, c := range records[1:] {
		if modulePriority(c.Module) < modulePriority(best.Module) {
			best = c
		}
	}
	return best, true
}
