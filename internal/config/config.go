// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for our application
type Config struct {
	App        AppConfig
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Security   SecurityConfig
	Commerce   CommerceConfig
	Membership MembershipConfig
	Analytics  AnalyticsConfig
	Email      EmailConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Debug       bool
	SiteURL     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	Name         string
	User         string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// RedisConfig contains Redis configuration
type RedisConfig struct {
	Host         string
	Port         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
}

// JWTConfig contains the settings used to verify storefront customer tokens
type JWTConfig struct {
	Secret            string
	Issuer            string
	AccessTokenExpiry time.Duration
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	RateLimitPerMinute int
	CORSAllowedOrigins []string
	CORSAllowedMethods []string
	CORSAllowedHeaders []string
	TrustedProxies     []string
	MaxRequestBytes    int64
}

// CommerceConfig contains the headless commerce (Storefront API) settings
type CommerceConfig struct {
	StorefrontURL   string
	AccessToken     string
	Timeout         time.Duration
	DefaultCurrency string
}

// MembershipConfig contains the business parameters of the membership program
type MembershipConfig struct {
	StandardDeliveryCost decimal.Decimal
	AnnualFee            decimal.Decimal
	ServiceDiscount      decimal.Decimal
	EligibleServices     []string
	Term                 time.Duration
	RenewalWindow        time.Duration
	CacheTTL             time.Duration
	ServiceMapFile       string
}

// AnalyticsConfig contains analytics tracking configuration
type AnalyticsConfig struct {
	Sink              string // none, http or redis
	SinkURL           string
	SinkAPIKey        string
	RedisStream       string
	ForwardTimeout    time.Duration
	SavingsMilestones []decimal.Decimal
}

// EmailConfig contains email service configuration
type EmailConfig struct {
	Enabled   bool
	Provider  string
	APIKey    string
	FromEmail string
	FromName  string
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig contains prometheus configuration
type MetricsConfig struct {
	Enabled   bool
	Namespace string
}

// Load loads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Storefront Membership"),
			Version:     getEnv("APP_VERSION", "1.0.0"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvAsBool("APP_DEBUG", true),
			SiteURL:     getEnv("SITE_URL", "http://localhost:3000"),
		},
		Server: ServerConfig{
			Port:           getEnv("APP_PORT", "8080"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			Name:         getEnv("DB_NAME", "storefront_db"),
			User:         getEnv("DB_USER", "storefront_user"),
			Password:     getEnv("DB_PASSWORD", "storefront_password"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 300*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", "your-super-secret-jwt-key-change-in-production"),
			Issuer:            getEnv("JWT_ISSUER", "storefront"),
			AccessTokenExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRE", 24*time.Hour),
		},
		Security: SecurityConfig{
			RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 100),
			CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			CORSAllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			CORSAllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "Accept-Language"}),
			TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
			MaxRequestBytes:    getEnvAsInt64("MAX_REQUEST_BYTES", 1<<20),
		},
		Commerce: CommerceConfig{
			StorefrontURL:   getEnv("COMMERCE_STOREFRONT_URL", ""),
			AccessToken:     getEnv("COMMERCE_STOREFRONT_TOKEN", ""),
			Timeout:         getEnvAsDuration("COMMERCE_TIMEOUT", 10*time.Second),
			DefaultCurrency: getEnv("COMMERCE_DEFAULT_CURRENCY", "AED"),
		},
		Membership: MembershipConfig{
			StandardDeliveryCost: getEnvAsDecimal("MEMBERSHIP_STANDARD_DELIVERY_COST", decimal.NewFromInt(25)),
			AnnualFee:            getEnvAsDecimal("MEMBERSHIP_ANNUAL_FEE", decimal.NewFromInt(99)),
			ServiceDiscount:      getEnvAsDecimal("MEMBERSHIP_SERVICE_DISCOUNT", decimal.RequireFromString("0.15")),
			EligibleServices: getEnvAsSlice("MEMBERSHIP_ELIGIBLE_SERVICES", []string{
				"massage", "cleaning", "salon", "car-wash", "pet-grooming", "laundry", "maintenance",
			}),
			Term:           getEnvAsDuration("MEMBERSHIP_TERM", 365*24*time.Hour),
			RenewalWindow:  getEnvAsDuration("MEMBERSHIP_RENEWAL_WINDOW", 30*24*time.Hour),
			CacheTTL:       getEnvAsDuration("MEMBERSHIP_CACHE_TTL", 5*time.Minute),
			ServiceMapFile: getEnv("MEMBERSHIP_SERVICE_MAP_FILE", ""),
		},
		Analytics: AnalyticsConfig{
			Sink:           getEnv("ANALYTICS_SINK", "none"),
			SinkURL:        getEnv("ANALYTICS_SINK_URL", ""),
			SinkAPIKey:     getEnv("ANALYTICS_SINK_API_KEY", ""),
			RedisStream:    getEnv("ANALYTICS_REDIS_STREAM", "membership:analytics"),
			ForwardTimeout: getEnvAsDuration("ANALYTICS_FORWARD_TIMEOUT", 5*time.Second),
			SavingsMilestones: getEnvAsDecimalSlice("ANALYTICS_SAVINGS_MILESTONES", []decimal.Decimal{
				decimal.NewFromInt(100), decimal.NewFromInt(250), decimal.NewFromInt(500), decimal.NewFromInt(1000),
			}),
		},
		Email: EmailConfig{
			Enabled:   getEnvAsBool("EMAIL_ENABLED", false),
			Provider:  getEnv("EMAIL_PROVIDER", "sendgrid"),
			APIKey:    getEnv("SENDGRID_API_KEY", ""),
			FromEmail: getEnv("FROM_EMAIL", "noreply@example.com"),
			FromName:  getEnv("FROM_NAME", "Storefront Membership"),
			SMTPHost:  getEnv("SMTP_HOST", ""),
			SMTPPort:  getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:  getEnv("SMTP_USER", ""),
			SMTPPass:  getEnv("SMTP_PASS", ""),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "debug"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:   getEnvAsBool("METRICS_ENABLED", true),
			Namespace: getEnv("METRICS_NAMESPACE", "storefront"),
		},
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("DB_NAME is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("DB_USER is required")
	}

	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}

	if c.Server.Port == "" {
		return fmt.Errorf("APP_PORT is required")
	}

	// Membership economics
	if c.Membership.ServiceDiscount.IsNegative() || c.Membership.ServiceDiscount.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("MEMBERSHIP_SERVICE_DISCOUNT must be a fraction between 0 and 1")
	}
	if c.Membership.StandardDeliveryCost.IsNegative() {
		return fmt.Errorf("MEMBERSHIP_STANDARD_DELIVERY_COST cannot be negative")
	}
	if c.Membership.AnnualFee.IsNegative() {
		return fmt.Errorf("MEMBERSHIP_ANNUAL_FEE cannot be negative")
	}

	switch c.Analytics.Sink {
	case "none", "redis":
	case "http":
		if c.Analytics.SinkURL == "" {
			return fmt.Errorf("ANALYTICS_SINK_URL is required when ANALYTICS_SINK=http")
		}
	default:
		return fmt.Errorf("unsupported ANALYTICS_SINK: %s", c.Analytics.Sink)
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

func getEnvAsDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsDecimalSlice(key string, defaultValue []decimal.Decimal) []decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []decimal.Decimal
	for _, part := range strings.Split(value, ",") {
		d, err := decimal.NewFromString(strings.TrimSpace(part))
		if err != nil {
			return defaultValue
		}
		out = append(out, d)
	}
	return out
}
