package auth

import (
	"context"
	"errors"

	"github.com/rogerio-castellano/shopnesty/internal/models"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID   string
	Username string
	Role     string
}

func (i Identity) IsAdmin() bool { return i.Role == models.RoleAdmin }

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
