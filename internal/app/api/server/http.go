package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tcmtongue/server/docs"
	"github.com/tcmtongue/server/internal/app/api/handlers"
	mw "github.com/tcmtongue/server/internal/app/api/middleware"
	"github.com/tcmtongue/server/internal/app/service/analytics"
	"github.com/tcmtongue/server/internal/app/service/analyzer"
	"github.com/tcmtongue/server/internal/app/service/billing"
	nh "github.com/tcmtongue/server/internal/app/service/notification_handler"
	notificationlog "github.com/tcmtongue/server/internal/app/service/notification_log"
	"github.com/tcmtongue/server/internal/app/service/quota"
	"github.com/tcmtongue/server/internal/app/service/scanhistory"
	"github.com/tcmtongue/server/internal/app/service/statistics"
	subsvc "github.com/tcmtongue/server/internal/app/service/subscription"
	cfgpkg "github.com/tcmtongue/server/pkg/config"
	metrics "github.com/tcmtongue/server/pkg/metrics"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(mw.TraceMiddleware())
	return r
}

type routeParams struct {
	fx.In

	Log      *zap.SugaredLogger
	Cfg      *cfgpkg.Config
	Auth     *mw.Authenticator
	Analyzer *analyzer.Service
	Gate     *quota.Gate
	Subs     *subsvc.Service
	Billing  *billing.Service
	Webhook  *nh.NotificationHandler
	Notif    *notificationlog.Service
	Scans    *scanhistory.Service
	Stats    *statistics.Service
	Events   *analytics.Service
}

func registerRoutes(r *gin.Engine, p routeParams) {
	log := p.Log
	if p.Cfg.MetricsAddr != "" {
		prom := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		prom.SetListenAddress(p.Cfg.MetricsAddr)
		prom.Use(r)

		log.Infow("metrics started", "addr", p.Cfg.MetricsAddr)
	}
	r.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(), mw.OptionalAuth(p.Auth))

	handlers.RegisterHealthRoutes(r, p.Analyzer)
	docs.SwaggerInfo.BasePath = "/"
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.Group("/api")
	handlers.RegisterAnalyzeRoutes(api, p.Analyzer, log)
	handlers.RegisterScanLimitRoutes(api, p.Gate, log)
	handlers.RegisterSubscriptionRoutes(api, p.Subs)
	handlers.RegisterScanRoutes(api, p.Scans, p.Subs, log)
	handlers.RegisterReportRoutes(api)
	handlers.RegisterAnalyticsRoutes(api, p.Events)

	stripeGroup := api.Group("/stripe")
	handlers.RegisterPaymentRoutes(stripeGroup, p.Billing, log)
	handlers.RegisterPaymentWebhookRoutes(stripeGroup, p.Webhook)

	handlers.RegisterAdminRoutes(api.Group("/admin", mw.AdminKey(p.Cfg)), p.Scans, p.Stats, p.Subs, p.Notif)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Provide(mw.NewAuthenticator),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
