// Package tenantctx carries the acting principal through request contexts.
package tenantctx

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type keyType string

const principalKey keyType = "principal"

// Principal identifies the authenticated actor for a request. The auth
// boundary is trusted to have verified these fields already.
type Principal struct {
	UserID    snowflake.ID
	CompanyID snowflake.ID
	Role      string
	ManagerID *snowflake.ID
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
