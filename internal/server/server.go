package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/enrollpay/internal/audit/domain"
	authdomain "github.com/smallbiznis/enrollpay/internal/auth/domain"
	"github.com/smallbiznis/enrollpay/internal/auth/session"
	"github.com/smallbiznis/enrollpay/internal/authorization"
	"github.com/smallbiznis/enrollpay/internal/config"
	"github.com/smallbiznis/enrollpay/internal/observability"
	obsmiddleware "github.com/smallbiznis/enrollpay/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/enrollpay/internal/observability/metrics"
	obstracing "github.com/smallbiznis/enrollpay/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/enrollpay/internal/payment/domain"
	pricingdomain "github.com/smallbiznis/enrollpay/internal/pricing/domain"
	"github.com/smallbiznis/enrollpay/internal/ratelimit"
	"github.com/smallbiznis/enrollpay/internal/receipt"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(validateConfig),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug,
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func validateConfig(cfg config.Config) error {
	return cfg.Validate()
}

func RunHTTP(lc fx.Lifecycle, shutdowner fx.Shutdowner, cfg config.Config, s *Server, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	log           *zap.Logger
	validate      *validator.Validate
	tokens        authdomain.TokenService
	sessions      *session.Manager
	authzSvc      authorization.Service
	auditSvc      auditdomain.Service
	paymentSvc    paymentdomain.Service
	webhookSvc    paymentdomain.WebhookService
	pricingSvc    pricingdomain.Service
	receipts      receipt.Renderer
	obsMetrics    *obsmetrics.Metrics
	verifyLimiter *ratelimit.VerifyLimiter
	ipLimiter     *ratelimit.IPLimiter
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	Log           *zap.Logger
	Tokens        authdomain.TokenService
	Sessions      *session.Manager
	AuthzSvc      authorization.Service
	AuditSvc      auditdomain.Service
	PaymentSvc    paymentdomain.Service
	WebhookSvc    paymentdomain.WebhookService
	PricingSvc    pricingdomain.Service
	Receipts      receipt.Renderer
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
	VerifyLimiter *ratelimit.VerifyLimiter `optional:"true"`
	IPLimiter     *ratelimit.IPLimiter     `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		validate:      newValidator(),
		tokens:        p.Tokens,
		sessions:      p.Sessions,
		authzSvc:      p.AuthzSvc,
		auditSvc:      p.AuditSvc,
		paymentSvc:    p.PaymentSvc,
		webhookSvc:    p.WebhookSvc,
		pricingSvc:    p.PricingSvc,
		receipts:      p.Receipts,
		obsMetrics:    p.ObsMetrics,
		verifyLimiter: p.VerifyLimiter,
		ipLimiter:     p.IPLimiter,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// Gateway callbacks authenticate with the body signature, not a session.
	api.POST("/payments/webhook", s.HandlePaymentWebhook)

	api.GET("/pricing/quote",
		s.PublicRateLimit("pricing.quote"),
		s.AuthRequired(),
		s.authorizeAction(authorization.ObjectPricing, authorization.ActionPricingView),
		s.GetPricingQuote,
	)

	payments := api.Group("/payments", s.AuthRequired())
	payments.POST("/checkout", s.PublicRateLimit("payment.checkout"), s.Checkout)
	payments.GET("/:reference", s.GetPayment)
	payments.GET("/:reference/receipt", s.DownloadReceipt)
	payments.POST("/:reference/verify", s.VerifyRateLimit(), s.VerifyPayment)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AuthRequired())

	admin.GET("/payments/:reference",
		s.authorizeAction(authorization.ObjectPayment, authorization.ActionPaymentDiagnostics),
		s.GetPaymentDiagnostics,
	)
	admin.POST("/payments/:reference/reverify",
		s.authorizeAction(authorization.ObjectPayment, authorization.ActionPaymentReverify),
		s.ReverifyPayment,
	)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
