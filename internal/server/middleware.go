package server

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/enrollpay/internal/auth/domain"
	obscontext "github.com/smallbiznis/enrollpay/internal/observability/context"
	"github.com/smallbiznis/enrollpay/internal/ratelimit"
	"go.uber.org/zap"
)

const contextPrincipalKey = "principal"

// AuthRequired resolves the bearer token (or session cookie) into a principal.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, authdomain.ErrMissingToken)
			return
		}

		principal, err := s.tokens.Parse(token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		actorType := obscontext.ActorTypeUser
		if principal.IsStaff() {
			actorType = obscontext.ActorTypeStaff
		}

		c.Set(contextPrincipalKey, *principal)
		ctx := obscontext.WithActor(c.Request.Context(), actorType, principal.UserID.String())
		ctx = obscontext.WithClient(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func principalFromContext(c *gin.Context) (authdomain.Principal, bool) {
	value, ok := c.Get(contextPrincipalKey)
	if !ok {
		return authdomain.Principal{}, false
	}
	principal, ok := value.(authdomain.Principal)
	if !ok || principal.UserID == 0 {
		return authdomain.Principal{}, false
	}
	return principal, true
}

// authorizeAction checks an action that is not tied to an owned object.
func (s *Server) authorizeAction(object string, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), principal, object, action, 0); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// PublicRateLimit throttles an endpoint per client IP.
func (s *Server) PublicRateLimit(endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.ipLimiter.Enabled() {
			c.Next()
			return
		}

		ip := strings.TrimSpace(c.ClientIP())
		if ip == "" {
			ip = "unknown"
		}
		result := s.ipLimiter.Allow(endpoint + ":" + ip)
		if !s.applyRateLimit(c, endpoint, "ip", &result) {
			return
		}
		c.Next()
	}
}

// VerifyRateLimit throttles user-initiated verification per user.
// A redis failure lets the request through.
func (s *Server) VerifyRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.verifyLimiter.Enabled() {
			c.Next()
			return
		}

		principal, ok := principalFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result, err := s.verifyLimiter.AllowUser(c.Request.Context(), principal.UserID.String())
		if err != nil {
			s.log.Warn("verify rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !s.applyRateLimit(c, "payment.verify", "user", result) {
			return
		}
		c.Next()
	}
}

func (s *Server) applyRateLimit(c *gin.Context, endpoint string, reason string, result *ratelimit.RateLimitResult) bool {
	ctx := c.Request.Context()
	if result.Limit > 0 {
		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(max(result.Remaining, 0)))
	}
	if result.Allowed {
		s.obsMetrics.RecordRateLimitAllowed(ctx, endpoint)
		return true
	}

	s.obsMetrics.RecordRateLimitDenied(ctx, endpoint, reason)
	if result.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds()))))
	}
	AbortWithError(c, ErrRateLimited)
	return false
}
