// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Security   SecurityConfig   `json:"security"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Payment    PaymentConfig    `json:"payment"`
	Signature  SignatureConfig  `json:"signature"`
	Alipay     AlipayConfig     `json:"alipay"`
	BankGate   BankGateConfig   `json:"bankgate"`
	Crypto     CryptoConfig     `json:"crypto"`
	Retry      RetryConfig      `json:"retry"`
	Scheduler  SchedulerConfig  `json:"scheduler"`
	Notifier   NotifierConfig   `json:"notifier"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
	SlowQueryLog    bool          `json:"slow_query_log"`
	SlowQueryTime   time.Duration `json:"slow_query_time"`
}

type ServerConfig struct {
	Host              string        `json:"host"`
	Port              int           `json:"port"`
	ReadTimeout       time.Duration `json:"read_timeout"`
	WriteTimeout      time.Duration `json:"write_timeout"`
	IdleTimeout       time.Duration `json:"idle_timeout"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout"`
	BodyLimit         int           `json:"body_limit"`
	EnablePprof       bool          `json:"enable_pprof"`
	EnableMetrics     bool          `json:"enable_metrics"`
	TrustedProxies    []string      `json:"trusted_proxies"`
	ProxyHeader       string        `json:"proxy_header"`
	EnableCompression bool          `json:"enable_compression"`
	CompressionLevel  int           `json:"compression_level"`
}

type SecurityConfig struct {
	// TLS/HTTPS
	TLSEnabled         bool   `json:"tls_enabled"`
	TLSCertFile        string `json:"tls_cert_file"`
	TLSKeyFile         string `json:"tls_key_file"`
	TLSMinVersion      string `json:"tls_min_version"`
	HSTSMaxAge         int    `json:"hsts_max_age"`
	HSTSIncludeSubDoms bool   `json:"hsts_include_subdomains"`
	HSTSPreload        bool   `json:"hsts_preload"`

	// CORS
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	CORSMaxAge       int      `json:"cors_max_age"`

	// Rate Limiting
	CallbackRateLimit int           `json:"callback_rate_limit"` // requests per minute
	GlobalRateLimit   int           `json:"global_rate_limit"`   // requests per minute
	RateLimitWindow   time.Duration `json:"rate_limit_window"`
	RateLimitMemory   int           `json:"rate_limit_memory"` // MB

	// Content Security
	CSPPolicy           string `json:"csp_policy"`
	XFrameOptions       string `json:"x_frame_options"`
	XContentTypeOptions string `json:"x_content_type_options"`
	XSSProtection       string `json:"xss_protection"`
	ReferrerPolicy      string `json:"referrer_policy"`

	// API Security
	RequireAPIKey  bool     `json:"require_api_key"`
	APIKeyHeader   string   `json:"api_key_header"`
	AllowedAPIKeys []string `json:"allowed_api_keys"`
	IPWhitelist    []string `json:"ip_whitelist"`
	IPBlacklist    []string `json:"ip_blacklist"`
}

type LoggingConfig struct {
	Level            string `json:"level"`  // debug, info, warn, error
	Format           string `json:"format"` // json, text
	Output           string `json:"output"` // stdout, file, both
	FilePath         string `json:"file_path"`
	MaxSize          int    `json:"max_size"` // MB
	MaxBackups       int    `json:"max_backups"`
	MaxAge           int    `json:"max_age"` // days
	Compress         bool   `json:"compress"`
	EnableCaller     bool   `json:"enable_caller"`
	EnableStacktrace bool   `json:"enable_stacktrace"`

	// Access Logs
	EnableAccessLog bool   `json:"enable_access_log"`
	AccessLogPath   string `json:"access_log_path"`
	AccessLogFormat string `json:"access_log_format"`

	// Audit Logs
	EnableAuditLog bool   `json:"enable_audit_log"`
	AuditLogPath   string `json:"audit_log_path"`

	// Security Logs
	EnableSecurityLog bool   `json:"enable_security_log"`
	SecurityLogPath   string `json:"security_log_path"`
}

type MetricsConfig struct {
	Enabled     bool   `json:"enabled"`
	Port        int    `json:"port"`
	Path        string `json:"path"`
	EnablePprof bool   `json:"enable_pprof"`
	PprofPort   int    `json:"pprof_port"`

	// Prometheus
	EnablePrometheus bool   `json:"enable_prometheus"`
	PrometheusPath   string `json:"prometheus_path"`

	// Custom Metrics
	CollectDBMetrics    bool `json:"collect_db_metrics"`
	CollectCacheMetrics bool `json:"collect_cache_metrics"`
	CollectAppMetrics   bool `json:"collect_app_metrics"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	Provider        string        `json:"provider"` // redis, memory
	RedisURL        string        `json:"redis_url"`
	RedisDB         int           `json:"redis_db"`
	RedisPrefix     string        `json:"redis_prefix"`
	DefaultTTL      time.Duration `json:"default_ttl"`
	MaxMemory       int           `json:"max_memory"` // MB
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// PaymentConfig bounds the order lifecycle defaults and tells the gateways
// where providers should deliver their asynchronous callbacks.
type PaymentConfig struct {
	DefaultExpiryMinutes int    `json:"default_expiry_minutes"`
	MaxExpiryMinutes     int    `json:"max_expiry_minutes"`
	CallbackBaseURL      string `json:"callback_base_url"`
}

// SignatureConfig carries the shared signing secrets, one per counterparty.
type SignatureConfig struct {
	AlipaySecret   string        `json:"alipay_secret"`
	BankGateSecret string        `json:"bankgate_secret"`
	MerchantSecret string        `json:"merchant_secret"`
	ValidityWindow time.Duration `json:"validity_window"`
}

type AlipayConfig struct {
	BaseURL    string        `json:"base_url"`
	MerchantID string        `json:"merchant_id"`
	Timeout    time.Duration `json:"timeout"`
}

type BankGateConfig struct {
	BaseURL      string        `json:"base_url"`
	ClientID     string        `json:"client_id"`
	ClientSecret string        `json:"client_secret"`
	JWTAudience  string        `json:"jwt_audience"`
	JWTTTL       time.Duration `json:"jwt_ttl"`
	Timeout      time.Duration `json:"timeout"`
}

// ConfirmationTier maps an order amount floor to the confirmations required
// at or above it. Tiers for a network are kept sorted by descending floor.
type ConfirmationTier struct {
	MinAmount     int64 `json:"min_amount"`
	Confirmations int   `json:"confirmations"`
}

// CryptoConfig describes the on-chain rails: the receiving address pool and
// confirmation policy per network, plus the attribution bounds used when an
// observed transfer is matched back to an order.
type CryptoConfig struct {
	TronAddresses     []string           `json:"tron_addresses"`
	EthereumAddresses []string           `json:"ethereum_addresses"`
	BitcoinAddresses  []string           `json:"bitcoin_addresses"`
	TronTiers         []ConfirmationTier `json:"tron_tiers"`
	EthereumTiers     []ConfirmationTier `json:"ethereum_tiers"`
	BitcoinTiers      []ConfirmationTier `json:"bitcoin_tiers"`
	AmountTolerance   float64            `json:"amount_tolerance"` // accepted shortfall as a fraction of the order amount
	ObservationWindow time.Duration      `json:"observation_window"`
}

// AddressPools returns the receiving addresses keyed by network identifier.
func (c CryptoConfig) AddressPools() map[string][]string {
	return map[string][]string{
		"TRC20":   c.TronAddresses,
		"ERC20":   c.EthereumAddresses,
		"BITCOIN": c.BitcoinAddresses,
	}
}

// TierTable returns the confirmation tiers keyed by network identifier.
func (c CryptoConfig) TierTable() map[string][]ConfirmationTier {
	return map[string][]ConfirmationTier{
		"TRC20":   c.TronTiers,
		"ERC20":   c.EthereumTiers,
		"BITCOIN": c.BitcoinTiers,
	}
}

type RetryConfig struct {
	MaxAttempts    int           `json:"max_attempts"`
	BaseDelay      time.Duration `json:"base_delay"`
	MaxDelay       time.Duration `json:"max_delay"`
	JitterFraction float64       `json:"jitter_fraction"`
}

type SchedulerConfig struct {
	Enabled           bool          `json:"enabled"`
	Interval          time.Duration `json:"interval"`
	ProcessingPollAge time.Duration `json:"processing_poll_age"`
	RecoverAge        time.Duration `json:"recover_age"`
	BatchSize         int           `json:"batch_size"`
}

type NotifierConfig struct {
	Mode    string        `json:"mode"` // http, log
	Timeout time.Duration `json:"timeout"`
}

type DeploymentConfig struct {
	// Domain Configuration
	Domain           string `json:"domain"`
	APIDomain        string `json:"api_domain"`
	MonitoringDomain string `json:"monitoring_domain"`

	// SSL/TLS Configuration
	CertbotEmail string `json:"certbot_email"`

	// Monitoring Configuration
	GrafanaAdminPassword string `json:"grafana_admin_password"`

	// Additional Security
	RedisPassword string `json:"redis_password"`

	// Build Information
	Environment string `json:"environment"`
	Version     string `json:"version"`
	CommitHash  string `json:"commit_hash"`
	BuildTime   string `json:"build_time"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "postgres"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
			SlowQueryLog:    getEnvBool("DB_SLOW_QUERY_LOG", true),
			SlowQueryTime:   getEnvDuration("DB_SLOW_QUERY_TIME", 1*time.Second),
		},
		Server: ServerConfig{
			Host:              getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:              getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:       getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:      getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:       getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout:   getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			BodyLimit:         getEnvInt("SERVER_BODY_LIMIT", 4*1024*1024), // 4MB
			EnablePprof:       getEnvBool("SERVER_ENABLE_PPROF", false),
			EnableMetrics:     getEnvBool("SERVER_ENABLE_METRICS", true),
			TrustedProxies:    getEnvStringSlice("SERVER_TRUSTED_PROXIES", []string{"127.0.0.1"}),
			ProxyHeader:       getEnvString("SERVER_PROXY_HEADER", "X-Real-IP"),
			EnableCompression: getEnvBool("SERVER_ENABLE_COMPRESSION", true),
			CompressionLevel:  getEnvInt("SERVER_COMPRESSION_LEVEL", 6),
		},
		Security: SecurityConfig{
			TLSEnabled:          getEnvBool("TLS_ENABLED", true),
			TLSCertFile:         getEnvString("TLS_CERT_FILE", "/etc/ssl/certs/paycore.crt"),
			TLSKeyFile:          getEnvString("TLS_KEY_FILE", "/etc/ssl/private/paycore.key"),
			TLSMinVersion:       getEnvString("TLS_MIN_VERSION", "1.3"),
			HSTSMaxAge:          getEnvInt("HSTS_MAX_AGE", 31536000), // 1 year
			HSTSIncludeSubDoms:  getEnvBool("HSTS_INCLUDE_SUBDOMAINS", true),
			HSTSPreload:         getEnvBool("HSTS_PRELOAD", true),
			AllowedOrigins:      getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"https://your-domain.com", "https://api.your-domain.com"}),
			AllowedMethods:      getEnvStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:      getEnvStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With", "X-API-Key"}),
			AllowCredentials:    getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			CORSMaxAge:          getEnvInt("CORS_MAX_AGE", 86400),
			CallbackRateLimit:   getEnvInt("CALLBACK_RATE_LIMIT", 600),
			GlobalRateLimit:     getEnvInt("GLOBAL_RATE_LIMIT", 2000),
			RateLimitWindow:     getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute),
			RateLimitMemory:     getEnvInt("RATE_LIMIT_MEMORY", 64), // MB
			CSPPolicy:           getEnvString("CSP_POLICY", "default-src 'self'"),
			XFrameOptions:       getEnvString("X_FRAME_OPTIONS", "DENY"),
			XContentTypeOptions: getEnvString("X_CONTENT_TYPE_OPTIONS", "nosniff"),
			XSSProtection:       getEnvString("XSS_PROTECTION", "1; mode=block"),
			ReferrerPolicy:      getEnvString("REFERRER_POLICY", "strict-origin-when-cross-origin"),
			RequireAPIKey:       getEnvBool("REQUIRE_API_KEY", false),
			APIKeyHeader:        getEnvString("API_KEY_HEADER", "X-API-Key"),
			AllowedAPIKeys:      getEnvStringSlice("ALLOWED_API_KEYS", []string{}),
			IPWhitelist:         getEnvStringSlice("IP_WHITELIST", []string{}),
			IPBlacklist:         getEnvStringSlice("IP_BLACKLIST", []string{}),
		},
		Logging: LoggingConfig{
			Level:             getEnvString("LOG_LEVEL", "info"),
			Format:            getEnvString("LOG_FORMAT", "json"),
			Output:            getEnvString("LOG_OUTPUT", "file"),
			FilePath:          getEnvString("LOG_FILE_PATH", "/var/log/paycore/app.log"),
			MaxSize:           getEnvInt("LOG_MAX_SIZE", 100),
			MaxBackups:        getEnvInt("LOG_MAX_BACKUPS", 10),
			MaxAge:            getEnvInt("LOG_MAX_AGE", 30),
			Compress:          getEnvBool("LOG_COMPRESS", true),
			EnableCaller:      getEnvBool("LOG_ENABLE_CALLER", true),
			EnableStacktrace:  getEnvBool("LOG_ENABLE_STACKTRACE", true),
			EnableAccessLog:   getEnvBool("LOG_ENABLE_ACCESS", true),
			AccessLogPath:     getEnvString("LOG_ACCESS_PATH", "/var/log/paycore/access.log"),
			AccessLogFormat:   getEnvString("LOG_ACCESS_FORMAT", "combined"),
			EnableAuditLog:    getEnvBool("LOG_ENABLE_AUDIT", true),
			AuditLogPath:      getEnvString("LOG_AUDIT_PATH", "/var/log/paycore/audit.log"),
			EnableSecurityLog: getEnvBool("LOG_ENABLE_SECURITY", true),
			SecurityLogPath:   getEnvString("LOG_SECURITY_PATH", "/var/log/paycore/security.log"),
		},
		Metrics: MetricsConfig{
			Enabled:             getEnvBool("METRICS_ENABLED", true),
			Port:                getEnvInt("METRICS_PORT", 9090),
			Path:                getEnvString("METRICS_PATH", "/metrics"),
			EnablePprof:         getEnvBool("METRICS_ENABLE_PPROF", false),
			PprofPort:           getEnvInt("METRICS_PPROF_PORT", 6060),
			EnablePrometheus:    getEnvBool("METRICS_ENABLE_PROMETHEUS", true),
			PrometheusPath:      getEnvString("METRICS_PROMETHEUS_PATH", "/prometheus"),
			CollectDBMetrics:    getEnvBool("METRICS_COLLECT_DB", true),
			CollectCacheMetrics: getEnvBool("METRICS_COLLECT_CACHE", true),
			CollectAppMetrics:   getEnvBool("METRICS_COLLECT_APP", true),
		},
		Cache: CacheConfig{
			Enabled:         getEnvBool("CACHE_ENABLED", true),
			Provider:        getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:        getEnvString("CACHE_REDIS_URL", "redis://localhost:6379"),
			RedisDB:         getEnvInt("CACHE_REDIS_DB", 0),
			RedisPrefix:     getEnvString("CACHE_REDIS_PREFIX", "paycore:"),
			DefaultTTL:      getEnvDuration("CACHE_DEFAULT_TTL", 1*time.Hour),
			MaxMemory:       getEnvInt("CACHE_MAX_MEMORY", 256),
			CleanupInterval: getEnvDuration("CACHE_CLEANUP_INTERVAL", 10*time.Minute),
		},
		Payment: PaymentConfig{
			DefaultExpiryMinutes: getEnvInt("PAYMENT_DEFAULT_EXPIRY_MINUTES", 60),
			MaxExpiryMinutes:     getEnvInt("PAYMENT_MAX_EXPIRY_MINUTES", 1440),
			CallbackBaseURL:      getEnvString("PAYMENT_CALLBACK_BASE_URL", "https://api.your-domain.com/api/v1/callbacks"),
		},
		Signature: SignatureConfig{
			AlipaySecret:   getEnvString("SIGNATURE_ALIPAY_SECRET", ""),
			BankGateSecret: getEnvString("SIGNATURE_BANKGATE_SECRET", ""),
			MerchantSecret: getEnvString("SIGNATURE_MERCHANT_SECRET", ""),
			ValidityWindow: getEnvDuration("SIGNATURE_VALIDITY_WINDOW", 5*time.Minute),
		},
		Alipay: AlipayConfig{
			BaseURL:    getEnvString("ALIPAY_BASE_URL", "https://openapi.alipay.com"),
			MerchantID: getEnvString("ALIPAY_MERCHANT_ID", ""),
			Timeout:    getEnvDuration("ALIPAY_TIMEOUT", 30*time.Second),
		},
		BankGate: BankGateConfig{
			BaseURL:      getEnvString("BANKGATE_BASE_URL", "https://gateway.bankgate.com"),
			ClientID:     getEnvString("BANKGATE_CLIENT_ID", ""),
			ClientSecret: getEnvString("BANKGATE_CLIENT_SECRET", ""),
			JWTAudience:  getEnvString("BANKGATE_JWT_AUDIENCE", "bankgate-api"),
			JWTTTL:       getEnvDuration("BANKGATE_JWT_TTL", 2*time.Minute),
			Timeout:      getEnvDuration("BANKGATE_TIMEOUT", 30*time.Second),
		},
		Crypto: CryptoConfig{
			TronAddresses:     getEnvStringSlice("CRYPTO_TRON_ADDRESSES", []string{}),
			EthereumAddresses: getEnvStringSlice("CRYPTO_ETHEREUM_ADDRESSES", []string{}),
			BitcoinAddresses:  getEnvStringSlice("CRYPTO_BITCOIN_ADDRESSES", []string{}),
			TronTiers:         getEnvTiers("CRYPTO_TRON_CONFIRMATION_TIERS", "1000:27,100:19,0:1"),
			EthereumTiers:     getEnvTiers("CRYPTO_ETHEREUM_CONFIRMATION_TIERS", "1000:24,100:12,0:6"),
			BitcoinTiers:      getEnvTiers("CRYPTO_BITCOIN_CONFIRMATION_TIERS", "1000:6,100:3,0:1"),
			AmountTolerance:   getEnvFloat("CRYPTO_AMOUNT_TOLERANCE", 0.01),
			ObservationWindow: getEnvDuration("CRYPTO_OBSERVATION_WINDOW", 24*time.Hour),
		},
		Retry: RetryConfig{
			MaxAttempts:    getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:      getEnvDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
			MaxDelay:       getEnvDuration("RETRY_MAX_DELAY", 8*time.Second),
			JitterFraction: getEnvFloat("RETRY_JITTER_FRACTION", 0.2),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getEnvBool("SCHEDULER_ENABLED", true),
			Interval:          getEnvDuration("SCHEDULER_INTERVAL", 1*time.Minute),
			ProcessingPollAge: getEnvDuration("SCHEDULER_PROCESSING_POLL_AGE", 10*time.Minute),
			RecoverAge:        getEnvDuration("SCHEDULER_RECOVER_AGE", 5*time.Minute),
			BatchSize:         getEnvInt("SCHEDULER_BATCH_SIZE", 100),
		},
		Notifier: NotifierConfig{
			Mode:    getEnvString("NOTIFIER_MODE", "http"),
			Timeout: getEnvDuration("NOTIFIER_TIMEOUT", 30*time.Second),
		},
		Deployment: DeploymentConfig{
			Domain:               getEnvString("DOMAIN", "your-domain.com"),
			APIDomain:            getEnvString("API_DOMAIN", "api.your-domain.com"),
			MonitoringDomain:     getEnvString("MONITORING_DOMAIN", "monitoring.your-domain.com"),
			CertbotEmail:         getEnvString("CERTBOT_EMAIL", "admin@your-domain.com"),
			GrafanaAdminPassword: getEnvString("GRAFANA_ADMIN_PASSWORD", ""),
			RedisPassword:        getEnvString("REDIS_PASSWORD", ""),
			Environment:          getEnvString("APP_ENV", "production"),
			Version:              getEnvString("VERSION", "1.0.0"),
			CommitHash:           getEnvString("COMMIT_HASH", "unknown"),
			BuildTime:            getEnvString("BUILD_TIME", "unknown"),
		},
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from .env file if it exists
func loadEnvFile() error {
	envFile := ".env"

	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	// Open .env file
	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	// Read file line by line
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value pairs
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Set environment variable if not already set
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		// Use standard library strings.Split and strings.TrimSpace
		var result []string
		for _, item := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// getEnvTiers parses a confirmation tier list of the form
// "1000:27,100:19,0:1" (amount floor : required confirmations). A malformed
// override falls back to the built-in default.
func getEnvTiers(key, defaultValue string) []ConfirmationTier {
	if value := os.Getenv(key); value != "" {
		if tiers, err := ParseConfirmationTiers(value); err == nil {
			return tiers
		}
	}
	tiers, err := ParseConfirmationTiers(defaultValue)
	if err != nil {
		return nil
	}
	return tiers
}

// ParseConfirmationTiers parses "floor:confirmations" pairs separated by
// commas and returns them sorted by descending floor.
func ParseConfirmationTiers(raw string) ([]ConfirmationTier, error) {
	var tiers []ConfirmationTier
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.SplitN(part, ":", 2)
		if len(fields) != 2 {
			return nil, fmt.Errorf("malformed confirmation tier %q", part)
		}
		minAmount, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil || minAmount < 0 {
			return nil, fmt.Errorf("malformed confirmation tier floor %q", fields[0])
		}
		confirmations, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil || confirmations < 1 {
			return nil, fmt.Errorf("malformed confirmation tier count %q", fields[1])
		}
		tiers = append(tiers, ConfirmationTier{MinAmount: minAmount, Confirmations: confirmations})
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("no confirmation tiers in %q", raw)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i].MinAmount > tiers[j].MinAmount })
	return tiers, nil
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}
	if cfg.Database.Password == "" {
		errors = append(errors, "DB_PASSWORD is required")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errors = append(errors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	// Validate signing secrets
	if len(cfg.Signature.AlipaySecret) < 16 {
		errors = append(errors, "SIGNATURE_ALIPAY_SECRET must be at least 16 characters long")
	}
	if len(cfg.Signature.BankGateSecret) < 16 {
		errors = append(errors, "SIGNATURE_BANKGATE_SECRET must be at least 16 characters long")
	}
	if len(cfg.Signature.MerchantSecret) < 16 {
		errors = append(errors, "SIGNATURE_MERCHANT_SECRET must be at least 16 characters long")
	}
	if cfg.Signature.ValidityWindow <= 0 {
		errors = append(errors, "SIGNATURE_VALIDITY_WINDOW must be positive")
	}

	// Validate payment configuration
	if cfg.Payment.DefaultExpiryMinutes < 1 {
		errors = append(errors, "PAYMENT_DEFAULT_EXPIRY_MINUTES must be at least 1")
	}
	if cfg.Payment.MaxExpiryMinutes < cfg.Payment.DefaultExpiryMinutes {
		errors = append(errors, "PAYMENT_MAX_EXPIRY_MINUTES must not be below PAYMENT_DEFAULT_EXPIRY_MINUTES")
	}
	if cfg.Payment.CallbackBaseURL == "" {
		errors = append(errors, "PAYMENT_CALLBACK_BASE_URL is required")
	}

	// Validate gateway configuration
	if cfg.Alipay.BaseURL == "" {
		errors = append(errors, "ALIPAY_BASE_URL is required")
	}
	if cfg.BankGate.BaseURL == "" {
		errors = append(errors, "BANKGATE_BASE_URL is required")
	}
	if cfg.BankGate.JWTTTL <= 0 {
		errors = append(errors, "BANKGATE_JWT_TTL must be positive")
	}

	// Validate crypto configuration
	if cfg.Crypto.AmountTolerance < 0 || cfg.Crypto.AmountTolerance >= 0.5 {
		errors = append(errors, "CRYPTO_AMOUNT_TOLERANCE must be in [0, 0.5)")
	}
	if cfg.Crypto.ObservationWindow <= 0 {
		errors = append(errors, "CRYPTO_OBSERVATION_WINDOW must be positive")
	}
	for network, tiers := range cfg.Crypto.TierTable() {
		if len(tiers) == 0 {
			errors = append(errors, fmt.Sprintf("confirmation tiers for %s must not be empty", network))
		}
	}

	// Validate retry configuration
	if cfg.Retry.MaxAttempts < 1 {
		errors = append(errors, "RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.Retry.JitterFraction < 0 || cfg.Retry.JitterFraction > 1 {
		errors = append(errors, "RETRY_JITTER_FRACTION must be in [0, 1]")
	}

	// Validate scheduler configuration
	if cfg.Scheduler.Enabled {
		if cfg.Scheduler.Interval <= 0 {
			errors = append(errors, "SCHEDULER_INTERVAL must be positive")
		}
		if cfg.Scheduler.BatchSize < 1 {
			errors = append(errors, "SCHEDULER_BATCH_SIZE must be at least 1")
		}
	}

	// Validate notifier configuration
	if cfg.Notifier.Mode != "http" && cfg.Notifier.Mode != "log" {
		errors = append(errors, "NOTIFIER_MODE must be http or log")
	}

	// Validate logging configuration
	if cfg.Logging.Level != "" {
		validLevels := []string{"debug", "info", "warn", "error"}
		valid := false
		for _, level := range validLevels {
			if cfg.Logging.Level == level {
				valid = true
				break
			}
		}
		if !valid {
			errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
		}
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}
