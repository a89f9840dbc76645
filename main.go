package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/HSouheill/alumni_backend/config"
	"github.com/HSouheill/alumni_backend/controllers"
	"github.com/HSouheill/alumni_backend/middleware"
	"github.com/HSouheill/alumni_backend/repositories"
	"github.com/HSouheill/alumni_backend/routes"
	"github.com/HSouheill/alumni_backend/services"
	"github.com/HSouheill/alumni_backend/utils"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Logger.Fatalf("Invalid configuration: %v", err)
	}

	utils.InitLogger("alumni-backend", cfg.LogLevel)
	utils.InitSentry(cfg.SentryDSN, cfg.SentryEnvironment)
	defer utils.FlushSentry(2 * time.Second)

	client, err := config.ConnectDB(cfg)
	if err != nil {
		utils.Logger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	db := client.Database(cfg.DBName)
	if err := config.SetupCollections(db, cfg.OTPIssueWindow); err != nil {
		utils.Logger.Fatalf("Failed to set up collections: %v", err)
	}

	redisClient := config.ConnectRedis(cfg)

	userRepo := repositories.NewUserRepository(db)
	codeRepo := repositories.NewVerificationRepository(db)

	var limiter services.IssueLimiter
	if redisClient != nil {
		limiter = services.NewRedisIssueLimiter(redisClient, cfg.OTPIssueLimit, cfg.OTPIssueWindow)
	} else {
		utils.Logger.Warn("Redis unavailable, using MongoDB issuance log for rate limiting")
		limiter = services.NewMongoIssueLimiter(repositories.NewIssuanceRepository(db), cfg.OTPIssueLimit, cfg.OTPIssueWindow)
	}

	images, err := newImageStore(cfg)
	if err != nil {
		utils.Logger.Fatalf("Failed to set up image storage: %v", err)
	}

	signer := services.NewCredentialSigner(cfg.JWTSecret)
	otpService := services.NewOTPService(userRepo, codeRepo, limiter, newCodeSender(cfg), signer, services.OTPConfig{
		CodeTTL:     cfg.OTPCodeTTL,
		SessionTTL:  cfg.OTPSessionTTL,
		MaxAttempts: cfg.OTPMaxAttempts,
		HashCost:    cfg.BcryptCost,
	})
	profileService := services.NewProfileService(userRepo, codeRepo, images, signer)
	directoryService := services.NewDirectoryService(userRepo, images, cfg.BcryptCost)

	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}
	e.Server.ReadHeaderTimeout = 10 * time.Second

	rateLimiter := middleware.NewRateLimiter()
	defer rateLimiter.Stop()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	e.Use(echoMiddleware.BodyLimit("6M"))
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.RequireContentType())
	e.Use(middleware.SecurityHeadersWithConfig(middleware.SecurityConfig{
		HSTS:       !cfg.IsDevelopment(),
		ImageHosts: imageHosts(cfg),
	}))

	uploadDir := ""
	if cfg.StorageProvider == "local" {
		uploadDir = cfg.UploadDir
	}
	routes.SetupRoutes(e, client, routes.Controllers{
		OTP:     controllers.NewOTPController(otpService),
		Profile: controllers.NewProfileController(profileService),
		User:    controllers.NewUserController(directoryService),
	}, cfg.AdminAPIKey, uploadDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		utils.Logger.Infof("Server starting on port %s", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Logger.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	utils.Logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		utils.Logger.Errorf("Server shutdown error: %v", err)
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		utils.Logger.Errorf("MongoDB disconnect error: %v", err)
	}
}

func newCodeSender(cfg *config.Config) services.CodeSender {
	from := services.Sender{FromEmail: cfg.FromEmail, FromName: cfg.FromName}
	minutes := int(cfg.OTPCodeTTL.Minutes())

	var email, sms services.CodeSender
	switch {
	case cfg.MailProvider == "sendgrid" && cfg.SendGridAPIKey != "":
		email = services.NewSendGridEmailSender(cfg.SendGridAPIKey, from, minutes)
	case cfg.MailProvider == "smtp" && cfg.SMTPHost != "":
		email = services.NewSMTPEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, from, minutes)
	case cfg.IsDevelopment():
		utils.Logger.Warn("No mail provider configured, verification codes will be logged")
		email = services.LogSender{}
	default:
		utils.Logger.Warn("No mail provider configured, email verification disabled")
	}

	switch {
	case cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioFromPhone != "":
		sms = services.NewTwilioSMSSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromPhone, minutes)
	case cfg.IsDevelopment():
		sms = services.LogSender{}
	default:
		utils.Logger.Warn("Twilio not configured, phone verification disabled")
	}

	return services.NewChannelDispatcher(email, sms)
}

func newImageStore(cfg *config.Config) (services.ImageStore, error) {
	if cfg.StorageProvider != "minio" {
		return services.NewLocalImageStore(cfg.UploadDir), nil
	}

	store, err := services.NewMinioImageStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func imageHosts(cfg *config.Config) []string {
	if cfg.StorageProvider != "minio" {
		return nil
	}
	scheme := "http://"
	if cfg.MinioUseSSL {
		scheme = "https://"
	}
	return []string{scheme + cfg.MinioEndpoint}
}
