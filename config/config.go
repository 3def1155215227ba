package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"mailgate/models"
)

var (
	DB        *gorm.DB
	AppConfig Config
	envLoaded bool
)

type RedisConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

type SMTPConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Username  string `json:"username"`
	Password  string `json:"-"`
	FromEmail string `json:"from_email"`
	FromName  string `json:"from_name"`
	ToEmail   string `json:"to_email"`
}

type Config struct {
	Environment string `json:"environment"`
	ServerPort  string `json:"server_port"`

	// Paid verification provider
	VerifyProvider    string        `json:"verify_provider"` // zerobounce or sendgrid
	ZeroBounceAPIKey  string        `json:"-"`
	ZeroBounceAPIURL  string        `json:"zerobounce_api_url"`
	SendGridAPIKey    string        `json:"-"`
	SendGridAPIHost   string        `json:"sendgrid_api_host"`
	ProviderTimeout   time.Duration `json:"provider_timeout"`
	WhoisEnrichment   bool          `json:"whois_enrichment"`
	RoleAccountMode   string        `json:"role_account_mode"` // reject or warn
	DNSFailureTTL     time.Duration `json:"dns_failure_ttl"`   // 0 disables negative caching
	RateLimitGeneral  int           `json:"rate_limit_general"`
	RateLimitVerify   int           `json:"rate_limit_verify"`
	AllowedOrigins    []string      `json:"allowed_origins"`
	SentryDSN         string        `json:"-"`

	// Optional audit store
	DBEnabled      bool   `json:"db_enabled"`
	DBHost         string `json:"db_host"`
	DBPort         string `json:"db_port"`
	DBUser         string `json:"db_user"`
	DBPassword     string `json:"-"`
	DBName         string `json:"db_name"`
	DBSSLMode      string `json:"db_ssl_mode"`
	DBMaxIdleConns int    `json:"db_max_idle_conns"`
	DBMaxOpenConns int    `json:"db_max_open_conns"`

	Redis RedisConfig `json:"redis"`
	SMTP  SMTPConfig  `json:"smtp"`
}

func init() {
	// Try to load .env file, but don't fail if it doesn't exist
	envLoaded = godotenv.Load() == nil
}

func LoadConfig() error {
	AppConfig = Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "3001"),

		VerifyProvider:   getEnv("VERIFY_PROVIDER", "zerobounce"),
		ZeroBounceAPIKey: getEnv("ZEROBOUNCE_API_KEY", ""),
		ZeroBounceAPIURL: getEnv("ZEROBOUNCE_API_URL", "https://api.zerobounce.net/v2/validate"),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		SendGridAPIHost:  getEnv("SENDGRID_API_HOST", "https://api.sendgrid.com"),
		ProviderTimeout:  getEnvAsDuration("PROVIDER_TIMEOUT", 10*time.Second),
		WhoisEnrichment:  getEnv("WHOIS_ENRICH_ENABLED", "false") == "true",
		RoleAccountMode:  getEnv("ROLE_ACCOUNT_MODE", "reject"),
		DNSFailureTTL:    getEnvAsDuration("DNS_FAILURE_TTL", 0),
		RateLimitGeneral: getEnvAsInt("RATE_LIMIT_GENERAL", 30),
		RateLimitVerify:  getEnvAsInt("RATE_LIMIT_VERIFY", 5),
		AllowedOrigins:   splitAndTrim(getEnv("ALLOWED_ORIGINS", "")),
		SentryDSN:        getEnv("SENTRY_DSN", ""),

		DBHost:         getEnv("DB_HOST", ""),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "postgres"),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", "mailgate"),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		DBMaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 100),

		Redis: RedisConfig{
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
			Address:  getEnv("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		SMTP: SMTPConfig{
			Host:      getEnv("SMTP_HOST", ""),
			Port:      getEnvAsInt("SMTP_PORT", 587),
			Username:  getEnv("SMTP_USERNAME", ""),
			Password:  getEnv("SMTP_PASSWORD", ""),
			FromEmail: getEnv("FROM_EMAIL", ""),
			FromName:  getEnv("FROM_NAME", "Portfolio Contact"),
			ToEmail:   getEnv("CONTACT_TO_EMAIL", ""),
		},
	}

	AppConfig.DBEnabled = AppConfig.DBHost != ""

	// Validate required configurations
	switch AppConfig.VerifyProvider {
	case "zerobounce", "sendgrid":
	default:
		return fmt.Errorf("VERIFY_PROVIDER must be zerobounce or sendgrid, got %q", AppConfig.VerifyProvider)
	}
	if AppConfig.RoleAccountMode != "reject" && AppConfig.RoleAccountMode != "warn" {
		return fmt.Errorf("ROLE_ACCOUNT_MODE must be reject or warn, got %q", AppConfig.RoleAccountMode)
	}
	if AppConfig.Environment == "production" {
		if AppConfig.VerifyProvider == "zerobounce" && AppConfig.ZeroBounceAPIKey == "" {
			return fmt.Errorf("ZEROBOUNCE_API_KEY is required in production")
		}
		if AppConfig.VerifyProvider == "sendgrid" && AppConfig.SendGridAPIKey == "" {
			return fmt.Errorf("SENDGRID_API_KEY is required in production")
		}
	}
	if AppConfig.SMTP.FromEmail != "" {
		if err := checkmail.ValidateFormat(AppConfig.SMTP.FromEmail); err != nil {
			return fmt.Errorf("FROM_EMAIL is not a valid address: %w", err)
		}
	}
	if AppConfig.SMTP.ToEmail != "" {
		if err := checkmail.ValidateFormat(AppConfig.SMTP.ToEmail); err != nil {
			return fmt.Errorf("CONTACT_TO_EMAIL is not a valid address: %w", err)
		}
	}

	logConfig()
	return nil
}

// ConnectDB opens the optional audit store. Callers should only invoke it when
// AppConfig.DBEnabled is true; the validation pipeline itself never touches the DB.
func ConnectDB() error {
	log.Println("Attempting to connect to audit database...")

	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		AppConfig.DBHost,
		AppConfig.DBPort,
		AppConfig.DBUser,
		AppConfig.DBPassword,
		AppConfig.DBName,
		AppConfig.DBSSLMode,
	)
	log.Println("Using connection string:", maskPassword(dsn))

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get DB instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(AppConfig.DBMaxIdleConns)
	sqlDB.SetMaxOpenConns(AppConfig.DBMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	log.Println("Successfully connected to the audit database")
	if err := migrateDB(DB); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

// Helper functions
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	if !envLoaded && fallback == "" {
		log.Printf("Environment variable %s not found and no fallback provided", key)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return fallback
	}
	return value
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration for %s: %q, using default", key, valueStr)
		return fallback
	}
	return value
}

func splitAndTrim(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func maskPassword(dsn string) string {
	const passwordMarker = "password="
	startIdx := strings.Index(dsn, passwordMarker)
	if startIdx == -1 {
		return dsn
	}

	startIdx += len(passwordMarker)
	endIdx := strings.IndexAny(dsn[startIdx:], " ")
	if endIdx == -1 {
		return dsn[:startIdx] + "*****"
	}
	return dsn[:startIdx] + "*****" + dsn[startIdx+endIdx:]
}

func logConfig() {
	log.Println("Loaded configuration:")
	log.Printf("Environment: %s", AppConfig.Environment)
	log.Printf("Server Port: %s", AppConfig.ServerPort)
	log.Printf("Verification provider: %s", AppConfig.VerifyProvider)
	log.Printf("Role account mode: %s", AppConfig.RoleAccountMode)
	log.Printf("Audit store: %t, Redis rate-limit storage: %t",
		AppConfig.DBEnabled, AppConfig.Redis.Enabled)
}

func migrateDB(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.VerificationEvent{},
		&models.ContactMessage{},
	)
}
