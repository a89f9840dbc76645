package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	MongoURI string
	DBName   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret   string
	AdminAPIKey string

	OTPCodeTTL     time.Duration
	OTPSessionTTL  time.Duration
	OTPMaxAttempts int
	OTPIssueLimit  int
	OTPIssueWindow time.Duration
	BcryptCost     int

	MailProvider   string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPass       string
	FromEmail      string
	FromName       string
	SendGridAPIKey string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromPhone  string

	StorageProvider string
	UploadDir       string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	SentryDSN         string
	SentryEnvironment string

	CORSAllowedOrigins []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_NAME", "alumni")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("OTP_CODE_TTL", "5m")
	v.SetDefault("OTP_SESSION_TTL", "20m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_ISSUE_LIMIT", 5)
	v.SetDefault("OTP_ISSUE_WINDOW", "60m")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("MAIL_PROVIDER", "smtp")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("FROM_NAME", "Alumni Connect")
	v.SetDefault("STORAGE_PROVIDER", "local")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_BUCKET", "alumni-profiles")
	v.SetDefault("SENTRY_ENVIRONMENT", "development")
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// .env is optional outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	mongoURI := v.GetString("MONGO_URI")
	if mongoURI == "" {
		mongoURI = v.GetString("MONGODB_URI")
	}

	cfg := &Config{
		Env:      v.GetString("ENV"),
		Port:     v.GetString("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		MongoURI: mongoURI,
		DBName:   v.GetString("DB_NAME"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		JWTSecret:   v.GetString("JWT_SECRET"),
		AdminAPIKey: v.GetString("ADMIN_API_KEY"),

		OTPCodeTTL:     v.GetDuration("OTP_CODE_TTL"),
		OTPSessionTTL:  v.GetDuration("OTP_SESSION_TTL"),
		OTPMaxAttempts: v.GetInt("OTP_MAX_ATTEMPTS"),
		OTPIssueLimit:  v.GetInt("OTP_ISSUE_LIMIT"),
		OTPIssueWindow: v.GetDuration("OTP_ISSUE_WINDOW"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),

		MailProvider:   strings.ToLower(v.GetString("MAIL_PROVIDER")),
		SMTPHost:       v.GetString("SMTP_HOST"),
		SMTPPort:       v.GetInt("SMTP_PORT"),
		SMTPUser:       v.GetString("SMTP_USER"),
		SMTPPass:       v.GetString("SMTP_PASS"),
		FromEmail:      v.GetString("FROM_EMAIL"),
		FromName:       v.GetString("FROM_NAME"),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),

		TwilioAccountSID: v.GetString("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  v.GetString("TWILIO_AUTH_TOKEN"),
		TwilioFromPhone:  v.GetString("TWILIO_FROM_PHONE"),

		StorageProvider: strings.ToLower(v.GetString("STORAGE_PROVIDER")),
		UploadDir:       v.GetString("UPLOAD_DIR"),
		MinioEndpoint:   v.GetString("MINIO_ENDPOINT"),
		MinioAccessKey:  v.GetString("MINIO_ACCESS_KEY"),
		MinioSecretKey:  v.GetString("MINIO_SECRET_KEY"),
		MinioBucket:     v.GetString("MINIO_BUCKET"),
		MinioUseSSL:     v.GetBool("MINIO_USE_SSL"),

		SentryDSN:         v.GetString("SENTRY_DSN"),
		SentryEnvironment: v.GetString("SENTRY_ENVIRONMENT"),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment reports whether the server runs with development fallbacks.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "dev"
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required")
	}
	if c.MongoURI == "" && !c.IsDevelopment() {
		return errors.New("MONGO_URI or MONGODB_URI environment variable is required for production")
	}
	if c.OTPCodeTTL <= 0 || c.OTPSessionTTL <= 0 || c.OTPIssueWindow <= 0 {
		return errors.New("OTP durations must be positive")
	}
	if c.OTPMaxAttempts <= 0 || c.OTPIssueLimit <= 0 {
		return errors.New("OTP_MAX_ATTEMPTS and OTP_ISSUE_LIMIT must be positive")
	}
	switch c.MailProvider {
	case "smtp", "sendgrid":
	default:
		return errors.New("MAIL_PROVIDER must be smtp or sendgrid")
	}
	switch c.StorageProvider {
	case "local", "minio":
	default:
		return errors.New("STORAGE_PROVIDER must be local or minio")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
