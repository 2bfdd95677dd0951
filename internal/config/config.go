package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Extractor ExtractorConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Archive   ArchiveConfig
	Tracing   TracingConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoggingConfig holds logger configuration
type LoggingConfig struct {
	Level  string
	Format string
	Output string
}

// ExtractorConfig holds yt-dlp invocation settings
type ExtractorConfig struct {
	ToolPath      string
	ScratchRoot   string
	Namespace     string
	AllowedHosts  []string
	DefaultFormat string
	ToolTimeout   time.Duration
	// When false the subprocess outlives an aborted HTTP request and the
	// workspace is removed once it exits.
	CancelOnDisconnect bool
	MaxStderrBytes     int
}

// MetricsConfig holds Prometheus exporter configuration
type MetricsConfig struct {
	Enabled bool
	Port    int
}

// RateLimitConfig holds request rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	Backend string // memory, redis
	RPS     int
	Burst   int // also the per-window request cap for the redis backend
	Window  time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// ArchiveConfig holds object storage configuration for keeping produced files
type ArchiveConfig struct {
	Enabled         bool
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string
	UseSSL          bool
	Prefix          string
}

// TracingConfig holds Jaeger configuration
type TracingConfig struct {
	Enabled     bool
	ServiceName string
	Endpoint    string
}

// Load reads configuration from file and environment variables.
// An empty path loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that cannot be defaulted
func (c *Config) Validate() error {
	if c.Extractor.ToolPath == "" {
		return fmt.Errorf("extractor.toolPath must not be empty")
	}
	if c.Extractor.Namespace == "" {
		return fmt.Errorf("extractor.namespace must not be empty")
	}
	if c.RateLimit.Enabled {
		switch c.RateLimit.Backend {
		case "memory", "redis":
		default:
			return fmt.Errorf("rateLimit.backend must be memory or redis, got %q", c.RateLimit.Backend)
		}
		if c.RateLimit.Backend == "redis" && c.RateLimit.Window <= 0 {
			return fmt.Errorf("rateLimit.window must be positive for the redis backend")
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.readTimeout", "30s")
	v.SetDefault("server.writeTimeout", "20m")
	v.SetDefault("server.shutdownTimeout", "10s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	// Extractor defaults
	v.SetDefault("extractor.toolPath", "yt-dlp")
	v.SetDefault("extractor.scratchRoot", os.TempDir())
	v.SetDefault("extractor.namespace", "audio-extract")
	v.SetDefault("extractor.allowedHosts", []string{"youtube.com", "youtu.be"})
	v.SetDefault("extractor.defaultFormat", "mp3")
	v.SetDefault("extractor.toolTimeout", "15m")
	v.SetDefault("extractor.cancelOnDisconnect", false)
	v.SetDefault("extractor.maxStderrBytes", 64*1024) // 64KB

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)

	// Rate limit defaults
	v.SetDefault("rateLimit.enabled", false)
	v.SetDefault("rateLimit.backend", "memory")
	v.SetDefault("rateLimit.rps", 2)
	v.SetDefault("rateLimit.burst", 5)
	v.SetDefault("rateLimit.window", "1m")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Archive defaults
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.endpoint", "localhost:9000")
	v.SetDefault("archive.accessKeyID", "minioadmin")
	v.SetDefault("archive.secretAccessKey", "minioadmin")
	v.SetDefault("archive.bucketName", "audio")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.useSSL", false)
	v.SetDefault("archive.prefix", "extracted")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.serviceName", "audioextract")
	v.SetDefault("tracing.endpoint", "http://localhost:14268/api/traces")
}
