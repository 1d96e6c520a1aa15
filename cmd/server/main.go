package main // Entry point of the review portal API

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/iliyamo/script-review-portal/internal/config"
	"github.com/iliyamo/script-review-portal/internal/database"
	"github.com/iliyamo/script-review-portal/internal/handler"
	"github.com/iliyamo/script-review-portal/internal/jobs"
	"github.com/iliyamo/script-review-portal/internal/logger"
	"github.com/iliyamo/script-review-portal/internal/metrics"
	"github.com/iliyamo/script-review-portal/internal/middleware"
	"github.com/iliyamo/script-review-portal/internal/queue"
	"github.com/iliyamo/script-review-portal/internal/repository"
	"github.com/iliyamo/script-review-portal/internal/router"
	"github.com/iliyamo/script-review-portal/internal/service"
	"github.com/iliyamo/script-review-portal/internal/stream"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(logger.Config{Environment: cfg.Env, LogLevel: cfg.LogLevel, ServiceName: "script-review-portal"})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	db, err := database.Open(ctx, cfg.DB())
	if err != nil {
		log.Fatal("open database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("migrate database", zap.Error(err))
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting and caches disabled")
	} else {
		defer rdb.Close()
	}
	cacheCfg := config.LoadCacheConfig()

	// ---- repositories ----
	scripts := repository.NewScriptRepo(db)
	reviews := repository.NewReviewRepo(db)
	pages := repository.NewPageRepo(db)
	judges := repository.NewJudgeRepo(db)
	applications := repository.NewApplicationRepo(db)
	notifications := repository.NewNotificationRepo(db)
	tokens := repository.NewTokenRepo(db)
	audit := repository.NewAuditRepo(db)

	// ---- notifications ----
	hub := stream.NewHub(log.Named("stream"), cfg.CORSOrigins)
	notifier := &service.Notifier{Store: notifications, Hub: hub, Log: log.Named("notify")}
	if cfg.RabbitURL != "" {
		notifier.Publisher = queue.NewPublisher(cfg.RabbitURL, log.Named("queue"))
		consumer := &queue.Consumer{URL: cfg.RabbitURL, Store: notifications, Hub: hub, Log: log.Named("queue")}
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("notification consumer stopped", zap.Error(err))
			}
		}()
	}

	// ---- services ----
	files, err := service.NewObjectStore(cfg.Storage)
	if err != nil {
		log.Fatal("object storage", zap.Error(err))
	}
	mailer := service.NewSMTPMailer(cfg.Mail, log.Named("mail"))
	drafts := service.NewDraftRegistry(cfg.AutosaveDebounce, log.Named("drafts"))
	workflow := &service.Workflow{
		Scripts:    scripts,
		Reviews:    reviews,
		Pages:      pages,
		Judges:     judges,
		Drafts:     drafts,
		Notifier:   notifier,
		Mail:       mailer,
		AdminEmail: cfg.AdminEmail,
		Log:        log.Named("workflow"),
	}
	exporter := &service.Exporter{
		Scripts: scripts,
		Reviews: reviews,
		Pages:   pages,
		Cache:   service.RedisBlobCache{RDB: rdb},
		TTL:     cacheCfg.ExportTTL,
		Log:     log.Named("export"),
	}
	purger := &service.Purger{Scripts: scripts, Files: files, Drafts: drafts, Reviews: reviews, Log: log.Named("purge")}
	checkout := &service.Checkout{Scripts: scripts, Notifier: notifier, Log: log.Named("checkout")}
	if p := service.NewStripeCheckout(cfg.Stripe); p != nil {
		checkout.Provider = p
	} else {
		log.Warn("stripe not configured: only the free tier can be submitted")
	}
	approvals := &service.Applications{
		Store:      applications,
		BcryptCost: cfg.BcryptCost,
		Notifier:   notifier,
		Mail:       mailer,
		Log:        log.Named("applications"),
	}

	// ---- background jobs ----
	sched := jobs.NewScheduler(log.Named("jobs"))
	if err := sched.AddAudit(cfg.AuditSchedule, audit); err != nil {
		log.Fatal("schedule audit", zap.Error(err))
	}
	if err := sched.AddDraftSweep("@every 1m", drafts, cfg.DraftIdleTTL); err != nil {
		log.Fatal("schedule draft sweep", zap.Error(err))
	}
	if err := sched.AddTokenCleanup("@daily", tokens, 7*24*time.Hour); err != nil {
		log.Fatal("schedule token cleanup", zap.Error(err))
	}
	sched.Start()

	// ---- HTTP ----
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestLogger(log.Named("http")))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if cfg.Storage.Bucket == "" {
		e.Static("/uploads", cfg.Storage.LocalDir)
	}

	authLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(config.LimitAuth), rdb, log.Named("ratelimit"))
	submitLimit := middleware.NewTokenBucket(config.LoadRateLimitConfig(config.LimitSubmit), rdb, log.Named("ratelimit"))
	cache := middleware.NewRedisCache(cacheCfg, rdb)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, judges, tokens, log.Named("auth")), cfg.JWTSecret, authLimit)
	router.RegisterPublic(e, &handler.PublicHandler{
		Checkout:     checkout,
		Uploader:     &service.Uploader{Store: files},
		Applications: approvals,
		Log:          log.Named("public"),
	}, submitLimit, cache)
	router.RegisterAdmin(e, &handler.AdminHandler{
		Scripts:      scripts,
		Judges:       judges,
		Applications: applications,
		Workflow:     workflow,
		Exporter:     exporter,
		Purger:       purger,
		Approvals:    approvals,
		Log:          log.Named("admin"),
	}, &handler.NotificationHandler{Store: notifications, Hub: hub, Log: log.Named("notifications")}, cfg.JWTSecret)
	router.RegisterContractor(e, &handler.ContractorHandler{
		Scripts:  scripts,
		Workflow: workflow,
		Log:      log.Named("contractor"),
	}, cfg.JWTSecret)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Stripe-Signature"},
		AllowCredentials: true,
	}).Handler(e)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           corsHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	sched.Stop(shutdownCtx)
	drafts.Shutdown(shutdownCtx)
}
