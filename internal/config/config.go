package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr          string
	DBDriver          string
	DBHost            string
	DBPort            string
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBLogLevel        string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	SessionSecret     string
	JWTSecret         string
	JWTTTL            time.Duration
	GinMode           string
	LogLevel          string
	LogFormat         string
	RateLimitRPS      float64
	RateLimitBurst    int
	AuditWriteTimeout time.Duration
	NotifyQueueSize   int
	OpenAIAPIKey      string
}

var defaults = map[string]any{
	"http_addr":           ":8080",
	"db_driver":           "mysql",
	"db_host":             "localhost",
	"db_port":             "3306",
	"db_user":             "taskuser",
	"db_password":         "taskpassword",
	"db_name":             "task_management",
	"db_sslmode":          "disable",
	"db_log_level":        "warn",
	"redis_host":          "localhost",
	"redis_port":          "6379",
	"redis_password":      "",
	"session_secret":      "default-secret-key-change-me",
	"jwt_secret":          "default-jwt-secret-change-me",
	"jwt_ttl":             "24h",
	"gin_mode":            "debug",
	"log_level":           "info",
	"log_format":          "json",
	"rate_limit_rps":      20,
	"rate_limit_burst":    40,
	"audit_write_timeout": "5s",
	"notify_queue_size":   256,
	"openai_api_key":      "",
}

// Load reads configuration from environment variables, optionally overlaid on a
// .env file in the working directory.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	// The file is optional
	_ = v.ReadInConfig()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key := range defaults {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	cfg := &Config{
		HTTPAddr:          v.GetString("http_addr"),
		DBDriver:          strings.ToLower(v.GetString("db_driver")),
		DBHost:            v.GetString("db_host"),
		DBPort:            v.GetString("db_port"),
		DBUser:            v.GetString("db_user"),
		DBPassword:        v.GetString("db_password"),
		DBName:            v.GetString("db_name"),
		DBSSLMode:         v.GetString("db_sslmode"),
		DBLogLevel:        v.GetString("db_log_level"),
		RedisHost:         v.GetString("redis_host"),
		RedisPort:         v.GetString("redis_port"),
		RedisPassword:     v.GetString("redis_password"),
		SessionSecret:     v.GetString("session_secret"),
		JWTSecret:         v.GetString("jwt_secret"),
		JWTTTL:            v.GetDuration("jwt_ttl"),
		GinMode:           v.GetString("gin_mode"),
		LogLevel:          v.GetString("log_level"),
		LogFormat:         v.GetString("log_format"),
		RateLimitRPS:      v.GetFloat64("rate_limit_rps"),
		RateLimitBurst:    v.GetInt("rate_limit_burst"),
		AuditWriteTimeout: v.GetDuration("audit_write_timeout"),
		NotifyQueueSize:   v.GetInt("notify_queue_size"),
		OpenAIAPIKey:      v.GetString("openai_api_key"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	switch c.DBDriver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("DB_DRIVER must be mysql or postgres, got %q", c.DBDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.GinMode == "release" && c.JWTSecret == defaults["jwt_secret"] {
		return fmt.Errorf("JWT_SECRET must be changed in release mode")
	}
	return nil
}

// RedisAddr returns host:port of the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}
