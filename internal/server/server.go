package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	auditdomain "github.com/smallbiznis/microgrid/internal/audit/domain"
	authdomain "github.com/smallbiznis/microgrid/internal/auth/domain"
	authlocal "github.com/smallbiznis/microgrid/internal/auth/local"
	"github.com/smallbiznis/microgrid/internal/auth/session"
	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/bulkimport"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/config"
	"github.com/smallbiznis/microgrid/internal/export"
	hhdomain "github.com/smallbiznis/microgrid/internal/household/domain"
	insdomain "github.com/smallbiznis/microgrid/internal/insurance/domain"
	"github.com/smallbiznis/microgrid/internal/observability"
	obsmiddleware "github.com/smallbiznis/microgrid/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/microgrid/internal/observability/metrics"
	obstracing "github.com/smallbiznis/microgrid/internal/observability/tracing"
	"github.com/smallbiznis/microgrid/internal/upload"
	vecdomain "github.com/smallbiznis/microgrid/internal/vec/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authlocal.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

// maxUploadMemory bounds the multipart form kept in memory; larger parts
// spill to temporary files.
const maxUploadMemory = 32 << 20

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	// customer ids may contain an encoded slash
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.MaxMultipartMemory = maxUploadMemory

	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
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
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	clock        clock.Clock
	authsvc      authdomain.Service
	sessions     *session.Manager
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	householdSvc hhdomain.Service
	vecSvc       vecdomain.Service
	insuranceSvc insdomain.Service
	importer     *bulkimport.Importer
	exporter     *export.Service
	uploads      *upload.Store
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Clock        clock.Clock
	Authsvc      authdomain.Service
	Sessions     *session.Manager
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	HouseholdSvc hhdomain.Service
	VECSvc       vecdomain.Service
	InsuranceSvc insdomain.Service
	Importer     *bulkimport.Importer
	Exporter     *export.Service
	Uploads      *upload.Store
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		clock:        p.Clock,
		authsvc:      p.Authsvc,
		sessions:     p.Sessions,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		householdSvc: p.HouseholdSvc,
		vecSvc:       p.VECSvc,
		insuranceSvc: p.InsuranceSvc,
		importer:     p.Importer,
		exporter:     p.Exporter,
		uploads:      p.Uploads,
	}

	svc.registerAPIRoutes()
	svc.engine.Static(upload.URLPrefix, svc.uploads.Dir())

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/hh-list", s.ListHouseholds)
	api.GET("/vec-list", s.ListVECs)

	hh := api.Group("/hh")
	{
		hh.POST("", s.CreateHousehold)
		hh.POST("/bulk", s.BulkHouseholds)
		hh.POST("/clear", s.ClearHouseholds)
		hh.POST("/delete", s.DeleteHousehold)
		hh.GET("/:customer_id", s.GetHousehold)
		hh.GET("/:customer_id/form", s.HouseholdForm)
		hh.POST("/:customer_id/draft", s.SaveHouseholdDraft)
		hh.POST("/:customer_id/submit", s.SubmitHousehold)
		hh.POST("/:customer_id/edit", s.EditHousehold)
		hh.POST("/:customer_id/remove", s.RemoveHouseholdSubmission)
		hh.DELETE("/:customer_id/drafts/:index", s.DeleteHouseholdDraft)
		hh.GET("/:customer_id/receipt/:index", s.HouseholdReceipt)
	}

	vec := api.Group("/vec")
	{
		vec.POST("", s.CreateVEC)
		vec.POST("/bulk", s.BulkVECs)
		vec.POST("/clear", s.ClearVECs)
		vec.POST("/delete", s.DeleteVEC)
		vec.GET("/:hamlet", s.GetVEC)
		vec.GET("/:hamlet/form", s.VECForm)
		vec.GET("/:hamlet/collection", s.VECCollection)
		vec.POST("/:hamlet/draft", s.SaveVECDraft)
		vec.POST("/:hamlet/submit", s.SubmitVEC)
		vec.POST("/:hamlet/edit", s.EditVEC)
		vec.POST("/:hamlet/remove", s.RemoveVECSubmission)
		vec.DELETE("/:hamlet/drafts/:index", s.DeleteVECDraft)
	}

	insurance := api.Group("/insurance")
	{
		insurance.GET("/all/submissions", s.ListClaims(insdomain.StatusSubmitted))
		insurance.GET("/all/drafts", s.ListClaims(insdomain.StatusDraft))
		insurance.GET("/:hamlet", s.GetHamletClaims)
		insurance.GET("/:hamlet/next-ref", s.NextClaimRef)
		insurance.POST("/:hamlet/draft", s.SaveClaimDraft)
		insurance.POST("/:hamlet/submit", s.SubmitClaim)
		insurance.DELETE("/:hamlet/drafts/:index", s.DeleteClaimDraft)
	}

	api.GET("/users", s.ListOperators)
	api.POST("/users/add", s.AddOperator)
	api.POST("/users/remove", s.RemoveOperator)

	api.GET("/stats/hh", s.HouseholdStats)
	api.GET("/stats/vec", s.VECStats)

	api.GET("/export/:dataset", s.ExportCSV)
	api.GET("/export.xlsx", s.ExportXLSX)

	api.GET("/audit-logs", s.ListAuditLogs)
}
