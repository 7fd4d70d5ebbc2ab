package rbac

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AccessLoader hydrates an access snapshot by account name.
type AccessLoader interface {
	Load(ctx context.Context, username string) (*UserAccess, error)
}

// Resolver normalizes the three principal shapes the identity layer
// produces into a single AuthContext, built once per request and shared
// by the gate, the data filter and the gatekeeper.
type Resolver struct {
	Loader AccessLoader
}

// NewAuthContext derives the normalized caller view from an access
// snapshot. A snapshot with no roles cannot take part in any decision
// and yields a RoleResolutionError.
func NewAuthContext(access *UserAccess) (*AuthContext, error) {
	if access == nil {
		return nil, ErrAuthenticationRequired
	}
	if len(access.Roles) == 0 {
		return nil, &RoleResolutionError{Username: access.Username, Reason: "no roles assigned"}
	}
	ac := &AuthContext{
		Username:    access.Username,
		Roles:       append([]RoleType(nil), access.Roles...),
		PrimaryRole: access.PrimaryRole,
		Plants:      append([]string(nil), access.Plants...),
	}
	if ac.PrimaryRole == "" {
		ac.PrimaryRole = ac.Roles[0]
	}
	ac.IsAdmin = ac.HasRole(RoleAdmin)
	return ac, nil
}

// Resolve builds the AuthContext from whichever principal shape was
// stored for the request: a full access snapshot, a credential carrying
// only the account name, or a bare username string. A nil principal
// means the request is unauthenticated.
func (r Resolver) Resolve(ctx context.Context, principal any) (*AuthContext, error) {
	switch p := principal.(type) {
	case nil:
		return nil, ErrAuthenticationRequired
	case *UserAccess:
		return NewAuthContext(p)
	case Credential:
		return r.load(ctx, p.PrincipalName())
	case string:
		return r.load(ctx, p)
	default:
		return nil, &RoleResolutionError{Reason: fmt.Sprintf("unsupported principal type %T", principal)}
	}
}

// ResolveRequest returns the request's AuthContext, reusing one already
// built earlier in the middleware chain.
func (r Resolver) ResolveRequest(req *http.Request) (*AuthContext, error) {
	ctx := req.Context()
	if ac := AuthFromContext(ctx); ac != nil {
		return ac, nil
	}
	return r.Resolve(ctx, PrincipalFromContext(ctx))
}

func (r Resolver) load(ctx context.Context, username string) (*AuthContext, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, &RoleResolutionError{Reason: "empty principal name"}
	}
	if r.Loader == nil {
		return nil, &OperationalError{Code: "resolver_unconfigured", Message: "no access loader configured"}
	}
	access, err := r.Loader.Load(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &RoleResolutionError{Username: username, Reason: "unknown user"}
		}
		return nil, &OperationalError{Code: "access_lookup_failed", Message: "loading access snapshot for " + username, Err: err}
	}
	return NewAuthContext(access)
}
