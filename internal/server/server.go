package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/kassa/internal/config"
	"github.com/smallbiznis/kassa/internal/locker"
	"github.com/smallbiznis/kassa/internal/ordersync"
	ordersyncdomain "github.com/smallbiznis/kassa/internal/ordersync/domain"
	"github.com/smallbiznis/kassa/internal/payload"
	"github.com/smallbiznis/kassa/internal/provider"
	"github.com/smallbiznis/kassa/internal/quote"
	quotedomain "github.com/smallbiznis/kassa/internal/quote/domain"
	"github.com/smallbiznis/kassa/internal/session"
	sessiondomain "github.com/smallbiznis/kassa/internal/session/domain"
	"github.com/smallbiznis/kassa/internal/shippinggateway"
	sgdomain "github.com/smallbiznis/kassa/internal/shippinggateway/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	config.Module,
	locker.Module,
	provider.Module,
	payload.Module,
	quote.Module,
	session.Module,
	shippinggateway.Module,
	ordersync.Module,
	fx.Provide(registerGin),
	fx.Provide(newCallbackMetrics),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine     *gin.Engine
	cfg        config.Config
	merchant   *config.MerchantConfigHolder
	log        *zap.Logger
	sessionSvc sessiondomain.Service
	gatewaySvc sgdomain.Service
	reconciler ordersyncdomain.Service
	quotes     quotedomain.Repository
	builder    *payload.Builder
	metrics    *callbackMetrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Merchant   *config.MerchantConfigHolder
	Log        *zap.Logger
	SessionSvc sessiondomain.Service
	GatewaySvc sgdomain.Service
	Reconciler ordersyncdomain.Service
	Quotes     quotedomain.Repository
	Builder    *payload.Builder
	Metrics    *callbackMetrics
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		merchant:   p.Merchant,
		log:        p.Log.Named("server"),
		sessionSvc: p.SessionSvc,
		gatewaySvc: p.GatewaySvc,
		reconciler: p.Reconciler,
		quotes:     p.Quotes,
		builder:    p.Builder,
		metrics:    p.Metrics,
	}

	svc.registerCheckoutRoutes()
	svc.registerCallbackRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerCheckoutRoutes() {
	checkout := s.engine.Group("/api/v1/checkout")

	checkout.POST("/:cart_id/init", s.InitCheckout)
	checkout.POST("/:cart_id/changed", s.MarkCartChanged)
	checkout.GET("/:cart_id/session", s.GetCheckoutSession)
}

// registerCallbackRoutes mounts the endpoints the provider invokes during the
// session lifecycle. Paths must match the merchant URLs sent on session
// creation.
func (s *Server) registerCallbackRoutes() {
	callbacks := s.engine.Group("/api/v1/callbacks")

	callbacks.POST("/address-update", s.AddressUpdate)
	callbacks.POST("/shipping-update", s.ShippingUpdate)
	callbacks.POST("/validate", s.Validate)
	callbacks.POST("/push", s.Push)
	callbacks.POST("/notification", s.Notification)
	callbacks.GET("/confirmation", s.Confirmation)
}
