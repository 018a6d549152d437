package authorization

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	authdomain "github.com/smallbiznis/enrollpay/internal/auth/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	return NewService(Params{Log: zaptest.NewLogger(t), Enforcer: enforcer})
}

func TestAuthorizeOwnership(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	student := authdomain.Principal{UserID: 101, Role: authdomain.RoleStudent}
	staff := authdomain.Principal{UserID: 900, Role: authdomain.RoleStaff}

	assert.NoError(t, svc.Authorize(ctx, student, ObjectPayment, ActionPaymentVerify, 101))
	assert.ErrorIs(t, svc.Authorize(ctx, student, ObjectPayment, ActionPaymentVerify, 102), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, student, ObjectPayment, ActionPaymentVerify, 0), ErrForbidden)

	assert.NoError(t, svc.Authorize(ctx, staff, ObjectPayment, ActionPaymentVerify, 101))
	assert.NoError(t, svc.Authorize(ctx, staff, ObjectPayment, ActionPaymentReverify, 101))
	assert.NoError(t, svc.Authorize(ctx, staff, ObjectPayment, ActionPaymentDiagnostics, 0))
}

func TestAuthorizeStaffOnlyActions(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	student := authdomain.Principal{UserID: 101, Role: authdomain.RoleStudent}

	assert.ErrorIs(t, svc.Authorize(ctx, student, ObjectPayment, ActionPaymentReverify, 101), ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, student, ObjectPayment, ActionPaymentDiagnostics, 101), ErrForbidden)
	assert.NoError(t, svc.Authorize(ctx, student, ObjectPricing, ActionPricingView, 0))
}

func TestAuthorizeFollowsRoleChanges(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	promoted := authdomain.Principal{UserID: 55, Role: authdomain.RoleStaff}
	require.NoError(t, svc.Authorize(ctx, promoted, ObjectPayment, ActionPaymentReverify, 1))

	demoted := authdomain.Principal{UserID: 55, Role: authdomain.RoleStudent}
	assert.ErrorIs(t, svc.Authorize(ctx, demoted, ObjectPayment, ActionPaymentReverify, 1), ErrForbidden)
}

func TestAuthorizeValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{Role: authdomain.RoleStaff}, ObjectPayment, ActionPaymentView, 0), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{UserID: 1, Role: "root"}, ObjectPayment, ActionPaymentView, 0), ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{UserID: 1, Role: authdomain.RoleStaff}, " ", ActionPaymentView, 0), ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, authdomain.Principal{UserID: 1, Role: authdomain.RoleStaff}, ObjectPayment, "", 0), ErrInvalidAction)
}

func TestAuthorizeSystem(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	assert.NoError(t, svc.AuthorizeSystem(ctx, ObjectPayment, ActionPaymentReverify))
	assert.ErrorIs(t, svc.AuthorizeSystem(ctx, ObjectPayment, ActionPaymentCheckout), ErrForbidden)
}

func TestAuthorizeDoesNotPersistUserRoles(t *testing.T) {
	ctx := context.Background()
	dsn := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	enforcer, err := NewEnforcer(db)
	require.NoError(t, err)
	svc := NewService(Params{Log: zaptest.NewLogger(t), Enforcer: enforcer})

	var seeded int64
	require.NoError(t, db.Table("casbin_rule").Count(&seeded).Error)
	require.NotZero(t, seeded)

	student := authdomain.Principal{UserID: 101, Role: authdomain.RoleStudent}
	staff := authdomain.Principal{UserID: 101, Role: authdomain.RoleStaff}
	assert.NoError(t, svc.Authorize(ctx, student, ObjectPayment, ActionPaymentView, 101))
	assert.NoError(t, svc.Authorize(ctx, staff, ObjectPayment, ActionPaymentReverify, 7))
	assert.ErrorIs(t, svc.Authorize(ctx, student, ObjectPayment, ActionPaymentReverify, 7), ErrForbidden)
	assert.NoError(t, svc.AuthorizeSystem(ctx, ObjectPayment, ActionPaymentReverify))

	var total, groupings int64
	require.NoError(t, db.Table("casbin_rule").Count(&total).Error)
	require.NoError(t, db.Table("casbin_rule").Where("ptype = ?", "g").Count(&groupings).Error)
	assert.Equal(t, seeded, total)
	assert.Zero(t, groupings)
}

func TestAuthorizeHonoursRoleInheritance(t *testing.T) {
	ctx := context.Background()
	enforcer, err := NewMemoryEnforcer()
	require.NoError(t, err)
	_, err = enforcer.AddGroupingPolicy("role:"+authdomain.RoleStudent, "role:"+authdomain.RoleStaff)
	require.NoError(t, err)
	svc := NewService(Params{Log: zaptest.NewLogger(t), Enforcer: enforcer})

	student := authdomain.Principal{UserID: 101, Role: authdomain.RoleStudent}
	assert.NoError(t, svc.Authorize(ctx, student, ObjectPayment, ActionPaymentReverify, 7))
}
