package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Agent    AgentConfig
	Logging  LoggingConfig
	LLM      LLMConfig
	Weather  WeatherConfig
}

// DatabaseConfig holds chat history database configuration
type DatabaseConfig struct {
	Driver             string `validate:"oneof=postgres sqlite"`
	DSN                string // full connection string, preferred when set
	Host               string
	Port               int
	User               string
	Password           string
	Database           string
	SSLMode            string
	SQLitePath         string
	MaxConnections     int `validate:"gte=1"`
	MaxIdleConnections int `validate:"gte=0"`
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            int `validate:"gte=1,lte=65535"`
	Host            string
	GinMode         string `validate:"oneof=debug release test"`
	AllowedOrigins  string
	AllowedMethods  string
	AllowedHeaders  string
	ShutdownTimeout time.Duration
}

// AgentConfig holds the conversational pipeline settings
type AgentConfig struct {
	HistoryWindow       int `validate:"gte=1,lte=50"`
	DomainGuardEnabled  bool
	SessionMemoryTTL    time.Duration
	SessionSweepEvery   time.Duration
	QueryTimeout        time.Duration
	DefaultUnits        string `validate:"oneof=metric imperial standard"`
	MaxHistoryListLimit int    `validate:"gte=1"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=json console"`
}

// LLMConfig holds OpenAI-compatible chat API configuration
type LLMConfig struct {
	APIKey          string
	APIBase         string `validate:"url"`
	ChatModel       string `validate:"required"`
	ChatTemperature float64
	ChatTopP        float64
	ChatMaxTokens   int
	ChatExtraBody   string // JSON string for extra_body (e.g., {"chat_template_kwargs":{"thinking":false}})
	Timeout         int    `validate:"gte=1"`
	Enabled         bool
}

// WeatherConfig holds OpenWeatherMap configuration
type WeatherConfig struct {
	APIKey         string
	BaseURL        string `validate:"url"`
	Timeout        time.Duration
	BreakerMaxReqs uint32
	BreakerTimeout time.Duration
}

var validate = validator.New()

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Driver: strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			// DATABASE_URL wins over the individual PG_* fields
			DSN:                getEnv("DATABASE_URL", getEnv("PG_DSN", "")),
			Host:               getEnv("PG_HOST", "localhost"),
			Port:               getEnvAsInt("PG_PORT", 5432),
			User:               getEnv("PG_USER", "postgres"),
			Password:           getEnv("PG_PASSWORD", ""),
			Database:           getEnv("PG_DATABASE", "weather_agent"),
			SSLMode:            getEnv("PG_SSLMODE", "disable"),
			SQLitePath:         getEnv("SQLITE_PATH", "weather_agent.db"),
			MaxConnections:     getEnvAsInt("DB_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DB_MAX_IDLE_CONNECTIONS", 1),
			ConnMaxLifetime:    getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime:    getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 2*time.Minute),
		},
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			GinMode:         getEnv("GIN_MODE", "release"),
			AllowedOrigins:  getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods:  getEnv("CORS_ALLOWED_METHODS", "GET,POST,DELETE,OPTIONS"),
			AllowedHeaders:  getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization,X-Session-ID"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Agent: AgentConfig{
			HistoryWindow:       getEnvAsInt("AGENT_HISTORY_WINDOW", 5),
			DomainGuardEnabled:  getEnvAsBool("AGENT_DOMAIN_GUARD", true),
			SessionMemoryTTL:    getEnvAsDuration("SESSION_MEMORY_TTL", 2*time.Hour),
			SessionSweepEvery:   getEnvAsDuration("SESSION_SWEEP_INTERVAL", 15*time.Minute),
			QueryTimeout:        getEnvAsDuration("AGENT_QUERY_TIMEOUT", 0),
			DefaultUnits:        getEnv("WEATHER_UNITS", "metric"),
			MaxHistoryListLimit: getEnvAsInt("HISTORY_MAX_LIMIT", 100),
		},
		Logging: LoggingConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
		LLM: LLMConfig{
			APIKey:          getEnv("OPENAI_API_KEY", ""),
			APIBase:         getEnv("OPENAI_API_BASE", "https://api.openai.com/v1"),
			ChatModel:       getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			ChatTemperature: getEnvAsFloat("OPENAI_CHAT_TEMPERATURE", 0.2),
			ChatTopP:        getEnvAsFloat("OPENAI_CHAT_TOP_P", 0),
			ChatMaxTokens:   getEnvAsInt("OPENAI_CHAT_MAX_TOKENS", 1024),
			ChatExtraBody:   getEnv("OPENAI_CHAT_EXTRA_BODY", ""),
			Timeout:         getEnvAsInt("OPENAI_TIMEOUT", 60),
			Enabled:         getEnv("OPENAI_API_KEY", "") != "",
		},
		Weather: WeatherConfig{
			APIKey:         getEnv("OPENWEATHERMAP_API_KEY", ""),
			BaseURL:        getEnv("OPENWEATHERMAP_BASE_URL", "https://api.openweathermap.org/data/2.5"),
			Timeout:        getEnvAsDuration("OPENWEATHERMAP_TIMEOUT", 10*time.Second),
			BreakerMaxReqs: uint32(getEnvAsInt("OPENWEATHERMAP_BREAKER_MAX_REQUESTS", 5)),
			BreakerTimeout: getEnvAsDuration("OPENWEATHERMAP_BREAKER_TIMEOUT", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the struct tags on every section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// RequireServing reports what is missing for the serve command.
func (c *Config) RequireServing() error {
	var missing []string
	if c.LLM.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.Weather.APIKey == "" {
		missing = append(missing, "OPENWEATHERMAP_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GetDatabaseDSN returns the connection string for the configured driver
func (c *Config) GetDatabaseDSN() string {
	if c.Database.Driver == "sqlite" {
		if c.Database.DSN != "" {
			return c.Database.DSN
		}
		return c.Database.SQLitePath
	}

	if c.Database.DSN != "" {
		return c.Database.DSN
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer value for %s, using default %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Warning: Invalid float value for %s, using default %f", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean value for %s, using default %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration value for %s, using default %s", key, defaultValue)
		return defaultValue
	}
	return value
}
