package api

import (
	"net/http"
	"slices"
	"strings"

	"github.com/okian/livescore/internal/domain/types"
)

// Headers set by the authentication proxy in front of the API.
const (
	HeaderIdentity = "X-Identity"
	HeaderRole     = "X-Role"
)

// Identity is the caller as asserted by the authentication proxy.
type Identity struct {
	ID   string
	Role types.Role
}

// identityFrom reads the caller from request headers. A caller without an
// identity is always public.
func identityFrom(r *http.Request) Identity {
	id := strings.TrimSpace(r.Header.Get(HeaderIdentity))
	if id == "" {
		return Identity{Role: types.RolePublic}
	}
	return Identity{ID: id, Role: types.ParseRole(r.Header.Get(HeaderRole))}
}

// require fails with ErrForbidden unless the caller has one of roles.
func (id Identity) require(op string, roles ...types.Role) error {
	if id.ID == "" || !slices.Contains(roles, id.Role) {
		return NewKind(op, ErrForbidden)
	}
	return nil
}
