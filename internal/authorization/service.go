package authorization

import (
	"context"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/enrollpay/internal/auth/domain"
)

type Service interface {
	// Authorize checks a principal against an action. ownerID is the user
	// owning the object, zero when the object has no owner.
	Authorize(ctx context.Context, principal authdomain.Principal, object string, action string, ownerID snowflake.ID) error
	// AuthorizeSystem checks an action for an automated process.
	AuthorizeSystem(ctx context.Context, object string, action string) error
}
