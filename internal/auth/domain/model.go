// Package domain contains core types for request authentication.
package domain

import (
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleStudent = "student"
	RoleStaff   = "staff"
)

var (
	ErrMissingToken = errors.New("missing_token")
	ErrInvalidToken = errors.New("invalid_token")
	ErrInvalidRole  = errors.New("invalid_role")
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID snowflake.ID
	Role   string
}

func (p Principal) IsStaff() bool {
	return p.Role == RoleStaff
}

// Subject is the authorization subject for the principal.
func (p Principal) Subject() string {
	return "user:" + p.UserID.String()
}

// NormalizeRole maps a claim value onto a known role.
func NormalizeRole(role string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleStaff:
		return RoleStaff, nil
	default:
		return "", ErrInvalidRole
	}
}
