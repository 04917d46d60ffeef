package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Overpayment policies.
const (
	OverpaymentReject  = "reject"
	OverpaymentAdvance = "advance"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	StorageDriver  string
	MigrationsPath string
	JWTSecret      string
	JWTIssuer      string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LockTTL     time.Duration
	LockWait    time.Duration
	LockRetries int
	LockBackoff time.Duration

	Location          *time.Location
	AccrualRunAt      time.Duration // offset from local midnight
	AccrualWorkers    int
	AccrualEnabled    bool
	OverpaymentPolicy string

	RateLimit          string
	CORSAllowedOrigins []string
	UPIVPA             string
	UPIPayeeName       string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("STORAGE_DRIVER", StoragePostgres)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	viper.SetDefault("JWT_ISSUER", "bahi-khata")
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LOCK_TTL", "30s")
	viper.SetDefault("LOCK_WAIT", "2s")
	viper.SetDefault("LOCK_RETRIES", 3)
	viper.SetDefault("LOCK_BACKOFF", "100ms")
	viper.SetDefault("LEDGER_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("ACCRUAL_RUN_AT", "00:01")
	viper.SetDefault("ACCRUAL_WORKERS", 8)
	viper.SetDefault("ACCRUAL_ENABLED", true)
	viper.SetDefault("OVERPAYMENT_POLICY", OverpaymentReject)
	viper.SetDefault("RATE_LIMIT", "300-M")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("UPI_VPA", "")
	viper.SetDefault("UPI_PAYEE_NAME", "")

	viper.AutomaticEnv()

	cfg := &Config{
		DatabaseURL:    viper.GetString("PGSQL_URL"),
		Port:           viper.GetString("PORT"),
		IsProduction:   viper.GetBool("IS_PRODUCTION"),
		EnableDBCheck:  viper.GetBool("ENABLE_DB_CHECK"),
		StorageDriver:  strings.ToLower(viper.GetString("STORAGE_DRIVER")),
		MigrationsPath: viper.GetString("MIGRATIONS_PATH"),
		JWTSecret:      viper.GetString("JWT_SECRET"),
		JWTIssuer:      viper.GetString("JWT_ISSUER"),
		RedisAddr:      viper.GetString("REDIS_ADDR"),
		RedisPassword:  viper.GetString("REDIS_PASSWORD"),
		RedisDB:        viper.GetInt("REDIS_DB"),
		LockRetries:    viper.GetInt("LOCK_RETRIES"),
		AccrualWorkers: viper.GetInt("ACCRUAL_WORKERS"),
		AccrualEnabled: viper.GetBool("ACCRUAL_ENABLED"),
		RateLimit:      viper.GetString("RATE_LIMIT"),
		UPIVPA:         viper.GetString("UPI_VPA"),
		UPIPayeeName:   viper.GetString("UPI_PAYEE_NAME"),
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET must not be empty")
	}

	switch cfg.StorageDriver {
	case StoragePostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("PGSQL_URL is required when STORAGE_DRIVER is %s", StoragePostgres)
		}
	case StorageMemory:
		if cfg.IsProduction {
			log.Println("Warning: memory storage in production loses every ledger on restart.")
		}
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	cfg.LockTTL = durationOr("LOCK_TTL", 30*time.Second)
	cfg.LockWait = durationOr("LOCK_WAIT", 2*time.Second)
	cfg.LockBackoff = durationOr("LOCK_BACKOFF", 100*time.Millisecond)
	if cfg.LockRetries < 0 {
		cfg.LockRetries = 0
	}
	if cfg.AccrualWorkers < 1 {
		log.Printf("Warning: ACCRUAL_WORKERS must be positive, got %d. Defaulting to 1.\n", cfg.AccrualWorkers)
		cfg.AccrualWorkers = 1
	}

	loc, err := time.LoadLocation(viper.GetString("LEDGER_TIMEZONE"))
	if err != nil {
		return nil, fmt.Errorf("invalid LEDGER_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	runAt, err := ParseClock(viper.GetString("ACCRUAL_RUN_AT"))
	if err != nil {
		return nil, fmt.Errorf("invalid ACCRUAL_RUN_AT: %w", err)
	}
	cfg.AccrualRunAt = runAt

	cfg.OverpaymentPolicy = strings.ToLower(viper.GetString("OVERPAYMENT_POLICY"))
	if cfg.OverpaymentPolicy != OverpaymentReject && cfg.OverpaymentPolicy != OverpaymentAdvance {
		return nil, fmt.Errorf("OVERPAYMENT_POLICY must be %q or %q, got %q", OverpaymentReject, OverpaymentAdvance, cfg.OverpaymentPolicy)
	}

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := viper.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Printf("Warning: Invalid value for %s ('%s'). Defaulting to %s.\n", key, raw, fallback)
		return fallback
	}
	return d
}

// ParseClock parses a "HH:MM" wall-clock time into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
