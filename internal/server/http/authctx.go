package httpserver

import (
	"context"

	"github.com/and161185/myflix/internal/model"
)

type ctxKey string

const identityKey ctxKey = "myflix.identity"

// WithIdentity stores the verified caller identity in context.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromCtx fetches the caller identity from context.
func IdentityFromCtx(ctx context.Context) (model.Identity, bool) {
	v := ctx.Value(identityKey)
	if v == nil {
		return model.Identity{}, false
	}
	id, ok := v.(model.Identity)
	return id, ok && id.Username != ""
}
