package auth

import "github.com/golang-jwt/jwt/v5"

type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
)

type Claims struct {
	jwt.RegisteredClaims
	OperatorID string `json:"sub"`
	Name       string `json:"name,omitempty"`
	Role       Role   `json:"role,omitempty"`
}

// CanControl reports whether the holder may change the command.
func (c *Claims) CanControl() bool {
	return c.Role == RoleOperator
}
