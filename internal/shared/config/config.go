package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Session   SessionConfig
	Ledger    LedgerConfig
	Redis     RedisConfig
	TLS       TLSConfig
	Telemetry TelemetryConfig
	Messages  MessagesConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	AutoMigrate bool
}

type JWTConfig struct {
	Secret string
}

type SessionConfig struct {
	TTL        time.Duration
	BcryptCost int
}

type LedgerConfig struct {
	// SettlementLockTTL bounds how long a settlement lock survives a crashed holder.
	SettlementLockTTL time.Duration
}

// RedisConfig enables the shared settlement guard when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
}

type MessagesConfig struct {
	// File optionally overrides the built-in user-facing texts.
	File string
}

var defaults = map[string]any{
	"port":                   "8080",
	"host":                   "0.0.0.0",
	"allowed_hosts":          "",
	"db_host":                "localhost",
	"db_port":                "5432",
	"db_user":                "finanzas",
	"db_password":            "",
	"db_name":                "finanzas",
	"db_sslmode":             "disable",
	"db_auto_migrate":        false,
	"jwt_secret":             "",
	"session_ttl":            "168h",
	"bcrypt_cost":            "10",
	"settlement_lock_ttl":    "30s",
	"redis_addr":             "",
	"redis_password":         "",
	"redis_db":               "0",
	"tls_enabled":            false,
	"tls_cert_path":          "",
	"tls_key_path":           "",
	"tls_redirect_http":      false,
	"otel_enabled":           false,
	"otel_service_name":      "finanzas-api",
	"otel_environment":       "development",
	"otel_exporter_endpoint": "localhost:4317",
	"messages_file":          "",
}

// Load reads configuration from the environment. When CONFIG_FILE is set,
// the named file (any format viper reads) supplies values the environment
// does not.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	dbPort, err := strconv.Atoi(v.GetString("db_port"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}
	redisDB, err := strconv.Atoi(v.GetString("redis_db"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	bcryptCost, err := strconv.Atoi(v.GetString("bcrypt_cost"))
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}
	sessionTTL, err := time.ParseDuration(v.GetString("session_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	lockTTL, err := time.ParseDuration(v.GetString("settlement_lock_ttl"))
	if err != nil {
		return nil, fmt.Errorf("invalid SETTLEMENT_LOCK_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("port"),
			Host:         v.GetString("host"),
			AllowedHosts: splitList(v.GetString("allowed_hosts")),
		},
		Database: DatabaseConfig{
			Host:        v.GetString("db_host"),
			Port:        dbPort,
			User:        v.GetString("db_user"),
			Password:    v.GetString("db_password"),
			DBName:      v.GetString("db_name"),
			SSLMode:     v.GetString("db_sslmode"),
			AutoMigrate: v.GetBool("db_auto_migrate"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt_secret"),
		},
		Session: SessionConfig{
			TTL:        sessionTTL,
			BcryptCost: bcryptCost,
		},
		Ledger: LedgerConfig{
			SettlementLockTTL: lockTTL,
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       redisDB,
		},
		TLS: TLSConfig{
			Enabled:      v.GetBool("tls_enabled"),
			CertPath:     v.GetString("tls_cert_path"),
			KeyPath:      v.GetString("tls_key_path"),
			RedirectHTTP: v.GetBool("tls_redirect_http"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      v.GetBool("otel_enabled"),
			ServiceName:  v.GetString("otel_service_name"),
			Environment:  v.GetString("otel_environment"),
			OTLPEndpoint: v.GetString("otel_exporter_endpoint"),
		},
		Messages: MessagesConfig{
			File: v.GetString("messages_file"),
		},
	}

	// Validate required fields
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Session.TTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	// Validate TLS configuration
	if cfg.TLS.Enabled {
		if cfg.TLS.CertPath == "" {
			return nil, fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if cfg.TLS.KeyPath == "" {
			return nil, fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return cfg, nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
