package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Naming    NamingConfig    `mapstructure:"naming"`
	Speech    SpeechConfig    `mapstructure:"speech"`
	Responder ResponderConfig `mapstructure:"responder"`
	Security  SecurityConfig  `mapstructure:"security"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// StorageConfig selects the storage gateway backend.
type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // postgres, sqlite, mysql or mongo
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
}

type PostgresConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Database   string `mapstructure:"database"`
	SSLMode    string `mapstructure:"ssl_mode"`
	MaxConns   int32  `mapstructure:"max_conns"`
	MinConns   int32  `mapstructure:"min_conns"`
	Migrations string `mapstructure:"migrations"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type MySQLConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

type LLMConfig struct {
	DefaultProvider string          `mapstructure:"default_provider"`
	OpenAI          OpenAIConfig    `mapstructure:"openai"`
	Anthropic       AnthropicConfig `mapstructure:"anthropic"`
	Ollama          OllamaConfig    `mapstructure:"ollama"`
	DeepSeek        DeepSeekConfig  `mapstructure:"deepseek"`
	Gemini          GeminiConfig    `mapstructure:"gemini"`
}

type OpenAIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type OllamaConfig struct {
	Host         string `mapstructure:"host"`
	DefaultModel string `mapstructure:"default_model"`
}

type DeepSeekConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

type GeminiConfig struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// NamingConfig controls thread topic generation.
type NamingConfig struct {
	Provider    string        `mapstructure:"provider"` // empty means llm.default_provider
	Model       string        `mapstructure:"model"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// SpeechConfig controls Whisper transcription and TTS synthesis.
type SpeechConfig struct {
	APIKey               string        `mapstructure:"api_key"`
	BaseURL              string        `mapstructure:"base_url"`
	TranscriptionModel   string        `mapstructure:"transcription_model"`
	SynthesisModel       string        `mapstructure:"synthesis_model"`
	Voice                string        `mapstructure:"voice"`
	TempDir              string        `mapstructure:"temp_dir"`
	TranscriptionTimeout time.Duration `mapstructure:"transcription_timeout"`
	SynthesisTimeout     time.Duration `mapstructure:"synthesis_timeout"`
}

type ResponderConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type SecurityConfig struct {
	TurnLockTTL time.Duration   `mapstructure:"turn_lock_ttl"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// File enables a rotated log file next to stdout output.
	File     string        `mapstructure:"file"`
	MaxAge   time.Duration `mapstructure:"max_age"`
	Rotation time.Duration `mapstructure:"rotation"`
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set config file path
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./configs/config.yaml"
	}

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	// Override with environment variables
	v.AutomaticEnv()
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that have no usable default.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "postgres", "sqlite", "mysql", "mongo":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	if c.Responder.URL == "" {
		return fmt.Errorf("responder.url is required")
	}
	if c.Naming.MaxTokens <= 0 {
		return fmt.Errorf("naming.max_tokens must be positive")
	}
	turn := c.WorstCaseTurn()
	if c.Server.WriteTimeout > 0 && c.Server.WriteTimeout < turn {
		return fmt.Errorf("server.write_timeout %s is shorter than the slowest turn %s", c.Server.WriteTimeout, turn)
	}
	if c.Server.RequestTimeout > 0 && c.Server.RequestTimeout < turn {
		return fmt.Errorf("server.request_timeout %s is shorter than the slowest turn %s", c.Server.RequestTimeout, turn)
	}
	return nil
}

// WorstCaseTurn is the longest a voice turn can take when every external call
// runs to its timeout: transcription, naming, generation, then synthesis.
func (c *Config) WorstCaseTurn() time.Duration {
	return c.Speech.TranscriptionTimeout + c.Naming.Timeout + c.Responder.Timeout + c.Speech.SynthesisTimeout
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "180s")
	v.SetDefault("server.request_timeout", "180s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_upload_bytes", 25<<20)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Storage
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("storage.postgres.host", "localhost")
	v.SetDefault("storage.postgres.port", 5432)
	v.SetDefault("storage.postgres.user", "companion")
	v.SetDefault("storage.postgres.database", "companion")
	v.SetDefault("storage.postgres.ssl_mode", "disable")
	v.SetDefault("storage.postgres.max_conns", 20)
	v.SetDefault("storage.postgres.min_conns", 2)
	v.SetDefault("storage.postgres.migrations", "file://migrations")
	v.SetDefault("storage.sqlite.path", "./data/companion.db")
	v.SetDefault("storage.mysql.host", "localhost")
	v.SetDefault("storage.mysql.port", 3306)
	v.SetDefault("storage.mysql.user", "companion")
	v.SetDefault("storage.mysql.database", "companion")
	v.SetDefault("storage.mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("storage.mongo.database", "companion")

	// Redis
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	// Auth
	v.SetDefault("auth.access_token_ttl", "15m")

	// LLM
	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("llm.openai.model", "gpt-3.5-turbo")
	v.SetDefault("llm.ollama.host", "http://localhost:11434")
	v.SetDefault("llm.ollama.default_model", "llama3")
	v.SetDefault("llm.anthropic.model", "claude-3-haiku-20240307")
	v.SetDefault("llm.deepseek.model", "deepseek-chat")
	v.SetDefault("llm.gemini.model", "gemini-1.5-flash")

	// Naming
	v.SetDefault("naming.max_tokens", 10)
	v.SetDefault("naming.temperature", 0.5)
	v.SetDefault("naming.timeout", "15s")

	// Speech
	v.SetDefault("speech.transcription_model", "whisper-1")
	v.SetDefault("speech.synthesis_model", "tts-1")
	v.SetDefault("speech.voice", "alloy")
	v.SetDefault("speech.transcription_timeout", "60s")
	v.SetDefault("speech.synthesis_timeout", "30s")

	// Responder
	v.SetDefault("responder.url", "http://localhost:8000/generate_response/")
	v.SetDefault("responder.timeout", "60s")

	// Security
	v.SetDefault("security.turn_lock_ttl", "2m")
	v.SetDefault("security.rate_limit.requests_per_minute", 60)
	v.SetDefault("security.rate_limit.burst", 10)

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.max_age", "168h")
	v.SetDefault("logging.rotation", "24h")
}

func bindEnvVars(v *viper.Viper) {
	// Storage
	v.BindEnv("storage.driver", "STORAGE_DRIVER")
	v.BindEnv("storage.postgres.password", "POSTGRES_PASSWORD")
	v.BindEnv("storage.mysql.password", "MYSQL_PASSWORD")
	v.BindEnv("storage.mongo.uri", "MONGO_URI")

	// Redis
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Auth
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")

	// LLM API Keys
	v.BindEnv("llm.openai.api_key", "OPENAI_API_KEY")
	v.BindEnv("llm.anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("llm.deepseek.api_key", "DEEPSEEK_API_KEY")
	v.BindEnv("llm.gemini.api_key", "GEMINI_API_KEY")
	v.BindEnv("llm.ollama.host", "OLLAMA_HOST")

	// Speech shares the OpenAI key unless overridden
	v.BindEnv("speech.api_key", "SPEECH_API_KEY", "OPENAI_API_KEY")

	v.BindEnv("responder.url", "RESPONDER_URL")
}
