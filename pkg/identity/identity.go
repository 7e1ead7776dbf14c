// Package identity carries the authenticated caller supplied by the gateway. The service trusts
// these headers and performs no authentication of its own.
package identity

import (
	"context"
	"net/http"
	"strings"

	apperrors "staybook/pkg/errors"

	"github.com/google/uuid"
)

const (
	HeaderUserID        = "X-User-Id"
	HeaderUserRole      = "X-User-Role"
	HeaderUserEmail     = "X-User-Email"
	HeaderUserFirstName = "X-User-First-Name"
	HeaderUserLastName  = "X-User-Last-Name"
)

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
)

type Caller struct {
	ID        string
	Role      Role
	Email     string
	FirstName string
	LastName  string
	Token     string
}

func (c *Caller) IsGuest() bool { return c.Role == RoleGuest }
func (c *Caller) IsHost() bool  { return c.Role == RoleHost }

type contextKey struct{}

func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

func FromContext(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(contextKey{}).(*Caller)
	return c, ok
}

// FromRequest reads the caller from gateway headers.
func FromRequest(r *http.Request) (*Caller, error) {
	id := strings.TrimSpace(r.Header.Get(HeaderUserID))
	if id == "" {
		return nil, apperrors.Unauthorized("Missing caller identity")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.Unauthorized("Malformed caller identity")
	}

	role := Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderUserRole))))
	if role != RoleGuest && role != RoleHost {
		return nil, apperrors.Unauthorized("Missing or unknown caller role")
	}

	return &Caller{
		ID:        id,
		Role:      role,
		Email:     strings.TrimSpace(r.Header.Get(HeaderUserEmail)),
		FirstName: strings.TrimSpace(r.Header.Get(HeaderUserFirstName)),
		LastName:  strings.TrimSpace(r.Header.Get(HeaderUserLastName)),
		Token:     bearerToken(r.Header.Get("Authorization")),
	}, nil
}

// Require resolves the caller and checks that it holds one of the roles. No roles means any role.
func Require(r *http.Request, roles ...Role) (*Caller, error) {
	c, ok := FromContext(r.Context())
	if !ok {
		var err error
		if c, err = FromRequest(r); err != nil {
			return nil, err
		}
	}
	if len(roles) == 0 {
		return c, nil
	}
	for _, role := range roles {
		if c.Role == role {
			return c, nil
		}
	}
	return nil, apperrors.Forbidden("Operation not allowed for role " + string(c.Role))
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
