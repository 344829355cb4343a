package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/service"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/frontdesk/store"
	"github.com/BrandonDHaskell/Frontdesk/server/internal/metrics"
)

type Dependencies struct {
	Logger *zap.Logger
	Addr   string

	CORSOrigins    []string
	UploadDir      string // served under /uploads when set
	MaxUploadBytes int64

	Visits    *service.VisitService
	Roster    *service.RosterService
	Retention *service.RetentionJob
	Audit     store.AuditLog

	AdminGate   *service.AdminGate
	HistoryGate *service.AdminGate

	Metrics        *metrics.Metrics
	MetricsHandler http.Handler
	Health         func(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	engine     *gin.Engine

	visits    *service.VisitService
	roster    *service.RosterService
	retention *service.RetentionJob
	audit     store.AuditLog

	adminGate   *service.AdminGate
	historyGate *service.AdminGate

	maxUploadBytes int64
	health         func(ctx context.Context) error
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := d.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}

	engine := gin.New()
	engine.MaxMultipartMemory = maxUpload
	engine.Use(
		recoveryMiddleware(logger),
		loggingMiddleware(logger),
		metricsMiddleware(d.Metrics),
		corsMiddleware(d.CORSOrigins),
	)

	s := &Server{
		logger:         logger,
		engine:         engine,
		visits:         d.Visits,
		roster:         d.Roster,
		retention:      d.Retention,
		audit:          d.Audit,
		adminGate:      d.AdminGate,
		historyGate:    d.HistoryGate,
		maxUploadBytes: maxUpload,
		health:         d.Health,
	}

	engine.GET("/health", s.handleHealth)
	if d.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(d.MetricsHandler))
	}
	if d.UploadDir != "" {
		engine.Static("/uploads", d.UploadDir)
	}

	api := engine.Group("/api")
	{
		api.POST("/register-visitor", s.handleRegister)
		api.POST("/login", s.handleSignIn)
		api.POST("/update-visitor-details", s.handleUpdateAndSignIn)
		api.POST("/exit-visitor/:id", s.handleSignOut)
		api.POST("/record-missed-visit", s.handleRecordMissedVisit)
		api.POST("/ban-visitor/:id", s.handleBan)
		api.POST("/unban-visitor/:id", s.handleUnban)

		api.GET("/visitors", s.handleActiveRoster)
		api.GET("/visitor-search", s.handleSearch)
		api.GET("/history", s.handleHistory)
		api.GET("/history/export", s.handleHistoryExport)
		api.POST("/authorize-history", s.handleAuthorizeHistory)

		admin := api.Group("/admin")
		admin.POST("/retention/run", s.handleRetentionRun)
		admin.GET("/audit-logs", s.handleAuditLogs)
	}

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.health != nil {
		if err := s.health(c.Request.Context()); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
