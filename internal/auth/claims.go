package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// Claims are the only supported JWT claims shape for this service.
// Tokens identify the user only; the owning clinic is resolved through the
// tenant directory on every request, never trusted from the token.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}
