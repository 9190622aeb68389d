package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	SMTP      SMTPConfig
	Gateway   GatewayConfig
	Fees      FeesConfig
	Reminders RemindersConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SMTPConfig carries credentials for the receipt/reminder mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// GatewayConfig holds the shared secret used to verify gateway payment signatures.
type GatewayConfig struct {
	KeySecret string
}

// FeesConfig tunes the fee ledger surface.
type FeesConfig struct {
	SummaryCacheTTL   time.Duration
	ReceiptWorkers    int
	ReceiptRetries    int
	ReceiptDir        string
	ReceiptLinkSecret string
	ReceiptLinkTTL    time.Duration
	PublicBaseURL     string
	SchoolName        string
	MaxApplyRetries   int
}

// RemindersConfig controls the overdue-balance reminder job.
type RemindersConfig struct {
	Enabled  bool
	Schedule string
	DueDate  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{Secret: v.GetString("JWT_SECRET")}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.SMTP = SMTPConfig{
		Host:     v.GetString("SMTP_HOST"),
		Port:     v.GetInt("SMTP_PORT"),
		Username: v.GetString("SMTP_USERNAME"),
		Password: v.GetString("SMTP_PASSWORD"),
		From:     v.GetString("SMTP_FROM"),
	}

	cfg.Gateway = GatewayConfig{KeySecret: v.GetString("RAZORPAY_KEY_SECRET")}

	cfg.Fees = FeesConfig{
		SummaryCacheTTL:   parseDuration(v.GetString("FEES_SUMMARY_CACHE_TTL"), 5*time.Minute),
		ReceiptWorkers:    v.GetInt("FEES_RECEIPT_WORKERS"),
		ReceiptRetries:    v.GetInt("FEES_RECEIPT_RETRIES"),
		ReceiptDir:        v.GetString("FEES_RECEIPT_DIR"),
		ReceiptLinkSecret: v.GetString("FEES_RECEIPT_LINK_SECRET"),
		ReceiptLinkTTL:    parseDuration(v.GetString("FEES_RECEIPT_LINK_TTL"), 72*time.Hour),
		PublicBaseURL:     v.GetString("PUBLIC_BASE_URL"),
		SchoolName:        v.GetString("SCHOOL_NAME"),
		MaxApplyRetries:   v.GetInt("FEES_MAX_APPLY_RETRIES"),
	}

	cfg.Reminders = RemindersConfig{
		Enabled:  v.GetBool("ENABLE_FEE_REMINDERS"),
		Schedule: v.GetString("FEE_REMINDER_SCHEDULE"),
		DueDate:  v.GetString("FEE_DUE_DATE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "school_fees")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SMTP_HOST", "localhost")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "accounts@school.local")

	v.SetDefault("RAZORPAY_KEY_SECRET", "")

	v.SetDefault("FEES_SUMMARY_CACHE_TTL", "5m")
	v.SetDefault("FEES_RECEIPT_WORKERS", 2)
	v.SetDefault("FEES_RECEIPT_RETRIES", 3)
	v.SetDefault("FEES_RECEIPT_DIR", "./receipts")
	v.SetDefault("FEES_RECEIPT_LINK_SECRET", "")
	v.SetDefault("FEES_RECEIPT_LINK_TTL", "72h")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("SCHOOL_NAME", "Sunrise Public School")
	v.SetDefault("FEES_MAX_APPLY_RETRIES", 3)

	v.SetDefault("ENABLE_FEE_REMINDERS", false)
	v.SetDefault("FEE_REMINDER_SCHEDULE", "0 8 * * *")
	v.SetDefault("FEE_DUE_DATE", "")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
