package gateway

import (
	"crypto/subtle"
	"fmt"

	"workwithme/internal/domain"
	"workwithme/internal/infra/config"
)

// ClientInfo holds metadata about an authenticated gateway client.
type ClientInfo struct {
	Name string
}

// anonymous is the client of an open gateway.
var anonymous = &ClientInfo{Name: "anonymous"}

// Authenticator validates incoming gateway connections.
type Authenticator interface {
	Authenticate(token string) (*ClientInfo, error)
}

// NewAuthenticator builds the authenticator for cfg. An empty type leaves
// the gateway open and returns nil.
func NewAuthenticator(cfg config.AuthConfig) (Authenticator, error) {
	switch cfg.Type {
	case "":
		return nil, nil
	case "static":
		if len(cfg.Tokens) == 0 {
			return nil, fmt.Errorf("gateway auth: static auth needs at least one token: %w", domain.ErrInvalidInput)
		}
		return NewStaticTokenAuth(cfg.Tokens), nil
	default:
		return nil, fmt.Errorf("gateway auth: unknown type %q: %w", cfg.Type, domain.ErrInvalidInput)
	}
}

type authEntry struct {
	token []byte
	info  *ClientInfo
}

// StaticTokenAuth authenticates clients against a static token list
// using constant-time comparison.
type StaticTokenAuth struct {
	entries []authEntry
}

// NewStaticTokenAuth builds an authenticator from configured tokens.
func NewStaticTokenAuth(tokens []config.TokenConfig) *StaticTokenAuth {
	a := &StaticTokenAuth{
		entries: make([]authEntry, 0, len(tokens)),
	}
	for _, t := range tokens {
		if t.Token == "" {
			continue
		}
		a.entries = append(a.entries, authEntry{
			token: []byte(t.Token),
			info:  &ClientInfo{Name: t.Name},
		})
	}
	return a
}

// Authenticate returns client info if the token is valid.
func (s *StaticTokenAuth) Authenticate(token string) (*ClientInfo, error) {
	tokenBytes := []byte(token)
	for _, e := range s.entries {
		if subtle.ConstantTimeCompare(tokenBytes, e.token) == 1 {
			return e.info, nil
		}
	}
	return nil, domain.ErrGatewayAuthFailed
}
