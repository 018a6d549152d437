package service

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/enrollpay/internal/auth/domain"
	"github.com/smallbiznis/enrollpay/internal/clock"
	"github.com/smallbiznis/enrollpay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const leeway = 30 * time.Second

type Params struct {
	fx.In

	Cfg   config.Config
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	secret []byte
	log    *zap.Logger
	clock  clock.Clock
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func New(p Params) domain.TokenService {
	return &Service{
		secret: []byte(strings.TrimSpace(p.Cfg.AuthJWTSecret)),
		log:    p.Log.Named("auth.service"),
		clock:  p.Clock,
	}
}

// Parse validates an HS256 token and returns its principal. Tokens without
// an expiry, with an unknown role or a non-snowflake subject are rejected.
func (s *Service) Parse(token string) (*domain.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrMissingToken
	}
	if len(s.secret) == 0 {
		return nil, domain.ErrInvalidToken
	}

	parsed := &claims{}
	_, err := jwt.ParseWithClaims(token, parsed, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			s.log.Debug("expired token presented")
		}
		return nil, domain.ErrInvalidToken
	}

	userID, err := snowflake.ParseString(strings.TrimSpace(parsed.Subject))
	if err != nil || userID == 0 {
		return nil, domain.ErrInvalidToken
	}
	role, err := domain.NormalizeRole(parsed.Role)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	return &domain.Principal{UserID: userID, Role: role}, nil
}

// Issue signs a token for the principal. Used by local tooling and tests.
func (s *Service) Issue(principal domain.Principal, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", domain.ErrInvalidToken
	}
	role, err := domain.NormalizeRole(principal.Role)
	if err != nil {
		return "", err
	}
	now := s.clock.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(s.secret)
}
