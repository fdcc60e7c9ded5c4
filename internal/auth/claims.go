package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for the admin API.
// The service is single-tenant; identity is a user plus a coarse role.
type Claims struct {
	jwt.RegisteredClaims

	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
}
