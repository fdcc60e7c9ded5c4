package bindings

import (
	"context"
	"time"
)

// Binding maps a PBX extension to one CRM user identity. A user without a
// ZohoUserID can log in but cannot receive popups; callers skip those.
type Binding struct {
	Extension  string    `json:"extension" db:"extension"`
	UserEmail  string    `json:"user_email" db:"user_email"`
	ZohoUserID string    `json:"zoho_user_id,omitempty" db:"zoho_user_id"`
	Active     bool      `json:"active" db:"active"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Directory is the read-only extension lookup consumed by the webhook
// pipeline. Binding management happens elsewhere (admin tooling).
type Directory interface {
	// ActiveForExtension returns every active binding for the extension,
	// in no particular order. An unknown extension is an empty slice,
	// not an error.
	ActiveForExtension(ctx context.Context, extension string) ([]Binding, error)

	// ListAll returns all bindings for the admin API.
	ListAll(ctx context.Context) ([]Binding, error)
}
