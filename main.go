package main

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	_ "github.com/lib/pq"

	"committeesync/config"
	_ "committeesync/docs"
	"committeesync/internal/adapters/accounts"
	"committeesync/internal/adapters/auth"
	"committeesync/internal/adapters/email"
	"committeesync/internal/adapters/gcal"
	"committeesync/internal/adapters/imat"
	"committeesync/internal/adapters/zoom"
	delivery "committeesync/internal/delivery/http"
	"committeesync/internal/delivery/http/controllers"
	"committeesync/internal/delivery/http/middleware"
	"committeesync/internal/repository/postgres"
	"committeesync/internal/services"
)

const (
	serviceTimeout = 30 * time.Second
	tokenExpiry    = 24 * time.Hour
)

// @title Committee Sync API
// @version 1.0
// @description Meeting synchronization service for committee administration.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("failed to open database", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("failed to reach database", "err", err)
		os.Exit(1)
	}

	accts := make([]accounts.Account, len(cfg.Accounts))
	for i, a := range cfg.Accounts {
		accts[i] = accounts.Account{
			ID:           a.ID,
			Kind:         a.Kind,
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
			TokenURL:     a.TokenURL,
			OwnerID:      a.OwnerID,
		}
	}
	registry := accounts.NewRegistry(accts)

	meetingRepo := postgres.NewMeetingRepository(db)
	groupRepo := postgres.NewGroupRepository(db)

	videoClient := zoom.NewClient(registry, "")
	calendarClient := gcal.NewClient(registry)
	registryClient := imat.NewClient(nil, cfg.RegistryBaseURL)
	sessionProvider := imat.NewSessionProvider(nil, cfg.RegistryBaseURL)

	mailer := email.NewMailer(email.MailerConfig{
		Provider:    cfg.MailerProvider,
		FromAddress: cfg.MailFromAddress,
		FromName:    cfg.MailFromName,
		SES: email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretKey,
		},
	}, logger)

	meetingService := services.NewMeetingService(
		meetingRepo, groupRepo, sessionProvider,
		videoClient, calendarClient, registryClient,
		cfg.DefaultVideoAccount, cfg.DefaultCalendarAccount,
		logger, serviceTimeout,
	)
	batchService := services.NewBatchService(meetingService, mailer, logger)

	codec := auth.NewJWTCodec(cfg.JWTSecret)
	meetingController := controllers.NewMeetingController(logger, batchService, meetingService)
	authController := controllers.NewAuthController(logger, codec, tokenExpiry)

	mux := delivery.NewRouter(meetingController, authController, codec, logger)
	handler := middleware.LoggingMiddleware(logger, mux)

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "env", cfg.Environment)
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
}
