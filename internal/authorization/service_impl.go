package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	authdomain "github.com/smallbiznis/enrollpay/internal/auth/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectPayment = "payment"
	ObjectPricing = "pricing"
)

const (
	ActionPaymentCheckout    = "payment.checkout"
	ActionPaymentVerify      = "payment.verify"
	ActionPaymentView        = "payment.view"
	ActionPaymentReverify    = "payment.reverify"
	ActionPaymentDiagnostics = "payment.diagnostics"

	ActionPricingView = "pricing.view"
)

const (
	scopeOwn = "own"
	scopeAny = "any"

	systemSubject = "system"
	roleSystem    = "role:system"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads policies from the casbin_rule table and seeds the
// built-in role policies.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer without persistence.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, principal authdomain.Principal, object string, action string, ownerID snowflake.ID) error {
	if principal.UserID == 0 {
		return ErrInvalidActor
	}
	role, err := authdomain.NormalizeRole(principal.Role)
	if err != nil {
		return ErrInvalidActor
	}
	object, action, err = normalize(object, action)
	if err != nil {
		return err
	}

	owner := ""
	if ownerID != 0 {
		owner = "user:" + ownerID.String()
	}
	return s.enforce(principal.Subject(), "role:"+role, object, action, owner)
}

func (s *ServiceImpl) AuthorizeSystem(ctx context.Context, object string, action string) error {
	object, action, err := normalize(object, action)
	if err != nil {
		return err
	}
	return s.enforce(systemSubject, roleSystem, object, action, "")
}

// enforce checks the request under the role carried by the token. Role
// links in casbin_rule only describe role inheritance; users are never
// grouped into roles in storage.
func (s *ServiceImpl) enforce(subject, role, object, action, owner string) error {
	allowed, err := s.enforcer.Enforce(subject, role, object, action, owner)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Info("authorization denied",
			zap.String("subject", subject),
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func normalize(object, action string) (string, string, error) {
	object = strings.TrimSpace(object)
	if object == "" {
		return "", "", ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return "", "", ErrInvalidAction
	}
	return object, action, nil
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	student := fmt.Sprintf("role:%s", authdomain.RoleStudent)
	staff := fmt.Sprintf("role:%s", authdomain.RoleStaff)

	policies := [][]string{
		// Students act on their own payments only
		{student, ObjectPayment, ActionPaymentCheckout, scopeOwn},
		{student, ObjectPayment, ActionPaymentVerify, scopeOwn},
		{student, ObjectPayment, ActionPaymentView, scopeOwn},
		{student, ObjectPricing, ActionPricingView, scopeAny},

		{staff, ObjectPayment, ActionPaymentVerify, scopeAny},
		{staff, ObjectPayment, ActionPaymentView, scopeAny},
		{staff, ObjectPayment, ActionPaymentReverify, scopeAny},
		{staff, ObjectPayment, ActionPaymentDiagnostics, scopeAny},
		{staff, ObjectPricing, ActionPricingView, scopeAny},

		// Background sweeper
		{roleSystem, ObjectPayment, ActionPaymentReverify, scopeAny},
	}

	for _, policy := range policies {
		has, err := enforcer.HasPolicy(policy)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
