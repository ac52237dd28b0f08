package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Minio     MinioConfig     `mapstructure:"minio"`
	Redis     RedisConfig     `mapstructure:"redis"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Chat      ChatConfig      `mapstructure:"chat"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	ReadTimeout    int      `mapstructure:"readTimeout"`  // seconds
	WriteTimeout   int      `mapstructure:"writeTimeout"` // seconds
	MaxUploadBytes int64    `mapstructure:"maxUploadBytes"`
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // memory | postgres | mysql
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxOpenConns    int `mapstructure:"maxOpenConns"`
	MaxIdleConns    int `mapstructure:"maxIdleConns"`
	ConnMaxLifetime int `mapstructure:"connMaxLifetime"` // seconds
}

type MinioConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"accessKey"`
	SecretKey  string `mapstructure:"secretKey"`
	BucketName string `mapstructure:"bucketName"`
	Region     string `mapstructure:"region"`
	UseSSL     bool   `mapstructure:"useSSL"`
	PresignTTL int    `mapstructure:"presignTTL"` // seconds, 0 = plain object URL
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      int    `mapstructure:"ttl"` // seconds
}

type OpenAIConfig struct {
	APIKey    string `mapstructure:"apiKey"`
	BaseURL   string `mapstructure:"baseURL"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"maxTokens"`
}

type AnalysisConfig struct {
	Workers     int    `mapstructure:"workers"`
	Timeout     int    `mapstructure:"timeout"` // seconds
	CatalogPath string `mapstructure:"catalogPath"`
}

type ChatConfig struct {
	Workers      int `mapstructure:"workers"`
	HistoryLimit int `mapstructure:"historyLimit"`
	ReplyTimeout int `mapstructure:"replyTimeout"` // seconds
}

type RateLimitConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Capacity   int  `mapstructure:"capacity"`
	RefillRate int  `mapstructure:"refillRate"` // tokens per second
}

type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// Load baca config.yaml (opsional) lalu override dari env DOCIMPACT_*.
// File .env di working directory ikut dibaca kalau ada.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("DOCIMPACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, cfg.validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 60)
	v.SetDefault("server.maxUploadBytes", 10<<20)
	v.SetDefault("server.allowedOrigins", []string{"*"})

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "docimpact")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "docimpact")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 10)
	v.SetDefault("database.connMaxLifetime", 1800)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.endpoint", "localhost:9000")
	v.SetDefault("minio.accessKey", "")
	v.SetDefault("minio.secretKey", "")
	v.SetDefault("minio.bucketName", "documents")
	v.SetDefault("minio.region", "us-east-1")
	v.SetDefault("minio.useSSL", false)
	v.SetDefault("minio.presignTTL", 0)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 86400)

	v.SetDefault("openai.apiKey", "")
	v.SetDefault("openai.baseURL", "")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("openai.maxTokens", 1500)

	v.SetDefault("analysis.workers", 4)
	v.SetDefault("analysis.timeout", 120)
	v.SetDefault("analysis.catalogPath", "")

	v.SetDefault("chat.workers", 8)
	v.SetDefault("chat.historyLimit", 20)
	v.SetDefault("chat.replyTimeout", 30)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.capacity", 60)
	v.SetDefault("ratelimit.refillRate", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.outputPath", "stdout")
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "memory", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return seconds(c.ConnMaxLifetime)
}

func (c ServerConfig) ReadTimeoutDuration() time.Duration  { return seconds(c.ReadTimeout) }
func (c ServerConfig) WriteTimeoutDuration() time.Duration { return seconds(c.WriteTimeout) }
func (c RedisConfig) TTLDuration() time.Duration           { return seconds(c.TTL) }
func (c MinioConfig) PresignDuration() time.Duration       { return seconds(c.PresignTTL) }
func (c AnalysisConfig) TimeoutDuration() time.Duration    { return seconds(c.Timeout) }
func (c ChatConfig) ReplyTimeoutDuration() time.Duration   { return seconds(c.ReplyTimeout) }
