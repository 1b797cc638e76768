package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/lendingloop/lendingloop-backend/api/routes"
	"github.com/lendingloop/lendingloop-backend/internal/auth"
	"github.com/lendingloop/lendingloop-backend/internal/invitations"
	"github.com/lendingloop/lendingloop-backend/internal/items"
	"github.com/lendingloop/lendingloop-backend/internal/loops"
	"github.com/lendingloop/lendingloop-backend/internal/notifications"
	"github.com/lendingloop/lendingloop-backend/internal/requests"
	"github.com/lendingloop/lendingloop-backend/internal/users"
	"github.com/lendingloop/lendingloop-backend/pkg/auth/session"
	"github.com/lendingloop/lendingloop-backend/pkg/config"
	"github.com/lendingloop/lendingloop-backend/pkg/db"
	"github.com/lendingloop/lendingloop-backend/pkg/logger"
	"github.com/lendingloop/lendingloop-backend/pkg/mailer"
	"github.com/lendingloop/lendingloop-backend/pkg/migrate"
	"github.com/lendingloop/lendingloop-backend/pkg/outbox"
	"github.com/lendingloop/lendingloop-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	mailClient, err := mailer.NewClient(cfg.Sendgrid)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail client", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	userRepo := users.NewRepository(gormDB)
	loopRepo := loops.NewRepository(gormDB)
	itemRepo := items.NewRepository(gormDB)
	requestRepo := requests.NewRepository(gormDB)
	invitationRepo := invitations.NewRepository(gormDB)
	notificationRepo := notifications.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:                 dbClient,
		Mailer:             mailClient,
		Logger:             logg,
		PasswordConfig:     cfg.Password,
		VerificationConfig: cfg.Verification,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notificationRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	loopService, err := loops.NewService(loopRepo, dbClient, outboxService, userRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create loops service", err)
		os.Exit(1)
	}

	itemService, err := items.NewService(itemRepo, loopRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create items service", err)
		os.Exit(1)
	}

	requestService, err := requests.NewService(requestRepo, dbClient, outboxService, notificationService, items.NewTxStore(itemRepo), loopRepo, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

	invitationService, err := invitations.NewService(invitations.ServiceParams{
		Repo:   invitationRepo,
		Tx:     dbClient,
		Outbox: outboxService,
		Notes:  notificationService,
		Loops:  loops.NewTxStore(loopRepo),
		Users:  userRepo,
		Mail:   mailClient,
		Config: cfg.Invitation,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invitations service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Sessions:      sessionManager,
		AuthService:   authService,
		Register:      registerService,
		Users:         userRepo,
		Loops:         loopService,
		Items:         itemService,
		Requests:      requestService,
		Invitations:   invitationService,
		Notifications: notificationService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
