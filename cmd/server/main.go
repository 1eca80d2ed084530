package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/bancozim/origination/api/handler"
	"github.com/bancozim/origination/internal/channels"
	"github.com/bancozim/origination/internal/config"
	"github.com/bancozim/origination/internal/infrastructure/buffer"
	"github.com/bancozim/origination/internal/infrastructure/checks"
	"github.com/bancozim/origination/internal/infrastructure/monitor"
	"github.com/bancozim/origination/internal/infrastructure/notify"
	pgInfra "github.com/bancozim/origination/internal/infrastructure/postgres"
	redisInfra "github.com/bancozim/origination/internal/infrastructure/redis"
	"github.com/bancozim/origination/internal/middleware"
	"github.com/bancozim/origination/internal/router"
	"github.com/bancozim/origination/internal/services"
	"github.com/bancozim/origination/internal/services/lifecycle"
	"github.com/bancozim/origination/internal/steps"
	"github.com/bancozim/origination/pkg/httpcontext"
	"github.com/bancozim/origination/pkg/logger"
	"github.com/bancozim/origination/repository/postgres"
	redisRepo "github.com/bancozim/origination/repository/redis"
	refcodeUC "github.com/bancozim/origination/usecase/refcode"
	statusUC "github.com/bancozim/origination/usecase/status"
	wizardUC "github.com/bancozim/origination/usecase/wizard"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)
	manager.Listen(cancel)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.Register("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.Register("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	outbox, err := buffer.Open(cfg.Outbox.Path, cfg.Outbox.Bucket)
	if err != nil {
		zapLogger.Fatal("failed to open notification outbox", zap.Error(err))
	}
	manager.Register("outbox", func(ctx context.Context) error {
		return outbox.Close()
	})

	mon := monitor.New(pool, redisClient, outbox, 10*time.Second, zapLogger)
	mon.Start()
	manager.Register("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	stateRepo := postgres.NewStateRepository(pool)
	transitionRepo := postgres.NewTransitionRepository(pool)
	deliveryRepo := postgres.NewDeliveryRepository(pool)
	sessionRepo := redisRepo.NewChannelSessionRepository(redisClient, cfg.Wizard.IdleTTL)

	gateway := notify.NewGateway(notify.GatewayConfig{
		BaseURL:  cfg.Notify.BaseURL,
		APIKey:   cfg.Notify.APIKey,
		SenderID: cfg.Notify.SenderID,
		Timeout:  cfg.Notify.Timeout,
	}, zapLogger)

	notifyProcessor := services.NewNotifyProcessor(outbox, gateway, zapLogger, services.ProcessorConfig{
		Interval:   cfg.Outbox.DrainInterval,
		BatchSize:  cfg.Outbox.BatchSize,
		MaxRetries: cfg.Outbox.MaxRetries,
		Retention:  cfg.Outbox.Retention,
	})
	notifyProcessor.Start()
	manager.Register("notify_processor", func(ctx context.Context) error {
		notifyProcessor.Stop(ctx)
		return nil
	})

	checkClient := checks.NewClient(checks.Config{
		BaseURL:     cfg.Checks.BaseURL,
		APIKey:      cfg.Checks.APIKey,
		Timeout:     cfg.Checks.Timeout,
		RetryBase:   cfg.Checks.RetryBase,
		RetryCap:    cfg.Checks.RetryCap,
		MaxAttempts: cfg.Checks.MaxAttempts,
	}, zapLogger)

	engine := steps.NewEngine()
	textAdapter := channels.NewAdapter(engine)

	wizardUseCase := wizardUC.New(stateRepo, transitionRepo, sessionRepo, engine, zapLogger, wizardUC.Config{
		SessionTTL: cfg.Wizard.SessionTTL,
		IdleTTL:    cfg.Wizard.IdleTTL,
	})
	refcodeUseCase := refcodeUC.New(stateRepo, zapLogger, refcodeUC.Config{
		Length:      cfg.RefCode.Length,
		TTL:         cfg.RefCode.TTL,
		MaxAttempts: cfg.RefCode.MaxAttempts,
	})
	statusUseCase := statusUC.New(stateRepo, deliveryRepo, checkClient, zapLogger)

	cleanup := services.NewCleanup(stateRepo, zapLogger, services.CleanupConfig{
		Schedule:  cfg.Jobs.CleanupSchedule,
		Retention: cfg.Jobs.CleanupRetention,
		BatchSize: cfg.Jobs.CleanupBatchSize,
	})
	if err := cleanup.Start(); err != nil {
		zapLogger.Fatal("cleanup job failed to start", zap.Error(err))
	}
	manager.Register("cleanup", func(ctx context.Context) error {
		cleanup.Stop(ctx)
		return nil
	})

	reminder := services.NewReminder(stateRepo, notifyProcessor, zapLogger, services.ReminderConfig{
		Schedule: cfg.Jobs.ReminderSchedule,
		LeadDays: cfg.Jobs.ReminderLeadDays,
	})
	if err := reminder.Start(); err != nil {
		zapLogger.Fatal("reminder job failed to start", zap.Error(err))
	}
	manager.Register("reminder", func(ctx context.Context) error {
		reminder.Stop(ctx)
		return nil
	})

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	completion := apiHandler.NewCompletionFlow(refcodeUseCase, statusUseCase, notifyProcessor, zapLogger)
	manager.Register("check_submissions", completion.Wait)

	handlers := router.Handlers{
		Wizard:   apiHandler.NewWizardHandler(wizardUseCase, completion, ctxAdapter, zapLogger),
		WhatsApp: apiHandler.NewWhatsAppHandler(wizardUseCase, textAdapter, completion, ctxAdapter, zapLogger),
		USSD:     apiHandler.NewUSSDHandler(wizardUseCase, textAdapter, completion, ctxAdapter, zapLogger),
		Lookup:   apiHandler.NewLookupHandler(refcodeUseCase, ctxAdapter, zapLogger),
		Admin:    apiHandler.NewAdminHandler(statusUseCase, cfg.Jobs.CleanupRetention, ctxAdapter, zapLogger),
		Webhook:  apiHandler.NewWebhookHandler(statusUseCase, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, zapLogger)
	r := router.New(handlers, authMiddleware)

	server := &fasthttp.Server{
		Handler:      r.Handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Name:         cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started", zap.String("address", cfg.Address()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Fatal("server crashed", zap.Error(err))
		}
	}()

	manager.Register("http_server", func(ctx context.Context) error {
		return server.Shutdown()
	})

	<-appCtx.Done()

	if err := manager.Shutdown(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
