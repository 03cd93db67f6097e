package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/netlift/netlift/internal/auditexport"
	baselinedomain "github.com/netlift/netlift/internal/baseline/domain"
	clientdomain "github.com/netlift/netlift/internal/client/domain"
	"github.com/netlift/netlift/internal/config"
	"github.com/netlift/netlift/internal/insights"
	ledgerdomain "github.com/netlift/netlift/internal/ledger/domain"
	"github.com/netlift/netlift/internal/observability"
	obsmiddleware "github.com/netlift/netlift/internal/observability/logger"
	obsmetrics "github.com/netlift/netlift/internal/observability/metrics"
	obstracing "github.com/netlift/netlift/internal/observability/tracing"
	"github.com/netlift/netlift/internal/ratelimit"
	settlementdomain "github.com/netlift/netlift/internal/settlement/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	clientSvc     clientdomain.Service
	baselineSvc   baselinedomain.Service
	ledgerSvc     ledgerdomain.Service
	settlementSvc settlementdomain.Service
	insightsSvc   *insights.Service
	exporter      *auditexport.Exporter
	orderLimiter  *ratelimit.OrderIngestLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	ClientSvc     clientdomain.Service
	BaselineSvc   baselinedomain.Service
	LedgerSvc     ledgerdomain.Service
	SettlementSvc settlementdomain.Service
	InsightsSvc   *insights.Service
	Exporter      *auditexport.Exporter
	OrderLimiter  *ratelimit.OrderIngestLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics           `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		clientSvc:     p.ClientSvc,
		baselineSvc:   p.BaselineSvc,
		ledgerSvc:     p.LedgerSvc,
		settlementSvc: p.SettlementSvc,
		insightsSvc:   p.InsightsSvc,
		exporter:      p.Exporter,
		orderLimiter:  p.OrderLimiter,
		obsMetrics:    p.ObsMetrics,
	}
}

// RegisterRoutes mounts the v1 API. Everything under /v1 requires the
// pre-shared bearer credential; /health and /metrics stay open.
func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(s.AuthRequired())
	v1.Use(s.requestTimeout())

	v1.POST("/orders", s.RecordOrder)

	v1.POST("/clients", s.CreateClient)
	v1.GET("/clients", s.ListClients)
	v1.GET("/clients/:id", s.GetClient)
	v1.PUT("/clients/:id/baseline", s.SyncBaseline)
	v1.POST("/clients/:id/anonymize", s.AnonymizeClient)

	v1.GET("/clients/:id/summary", s.GetClientSummary)
	v1.GET("/clients/:id/attributions", s.ListAttributions)
	v1.GET("/clients/:id/ledger", s.QueryLedger)
	v1.GET("/clients/:id/audit", s.ExportAudit)
	v1.GET("/clients/:id/settlements/:year/:month", s.GetOrGenerateSettlement)

	v1.POST("/settlements/:id/send", s.SendSettlement)
	v1.POST("/settlements/:id/pay", s.PaySettlement)
	v1.POST("/settlements/:id/dispute", s.DisputeSettlement)
}

// requestTimeout bounds every handler with the configured deadline so a
// stuck store call cannot hold the connection open indefinitely.
func (s *Server) requestTimeout() gin.HandlerFunc {
	timeout := s.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
