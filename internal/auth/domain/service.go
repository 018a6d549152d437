package domain

import "time"

// TokenService parses and issues the bearer tokens minted by the session service.
type TokenService interface {
	Parse(token string) (*Principal, error)
	Issue(principal Principal, ttl time.Duration) (string, error)
}
