package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Env     string
	Server  ServerConfig
	Data    DataConfig
	Redis   RedisConfig
	NATS    NATSConfig
	Cache   CacheConfig
	Session SessionConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// DataConfig holds flat-file store configuration. The operation log is the
// durable source of truth for platform reviews; the legacy export is never
// rewritten.
type DataConfig struct {
	Dir                 string
	ReviewLogFile       string
	LegacyExportFile    string
	UsersFile           string
	MoviesFile          string
	CompactionThreshold int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL string
}

// CacheConfig holds caching TTL configuration
type CacheConfig struct {
	MovieRatingTTL time.Duration
	ReviewsListTTL time.Duration
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	TTL time.Duration
}

// Load reads configuration from environment variables and returns a Config struct
func Load() (*Config, error) {
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_READ_TIMEOUT", "10s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "10s")
	viper.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8080")

	viper.SetDefault("DATA_DIR", "data")
	viper.SetDefault("REVIEW_LOG_FILE", "reviews.csv")
	viper.SetDefault("LEGACY_EXPORT_FILE", "imdb_reviews.csv")
	viper.SetDefault("USERS_FILE", "users.csv")
	viper.SetDefault("MOVIES_FILE", "movies.csv")
	viper.SetDefault("COMPACTION_THRESHOLD", 100)

	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)

	viper.SetDefault("NATS_URL", "nats://localhost:4222")

	viper.SetDefault("CACHE_TTL_MOVIE_RATING", "300s")
	viper.SetDefault("CACHE_TTL_REVIEWS_LIST", "120s")

	viper.SetDefault("SESSION_TTL", "2h")

	durations := map[string]*time.Duration{
		"SERVER_READ_TIMEOUT":     new(time.Duration),
		"SERVER_WRITE_TIMEOUT":    new(time.Duration),
		"SERVER_SHUTDOWN_TIMEOUT": new(time.Duration),
		"CACHE_TTL_MOVIE_RATING":  new(time.Duration),
		"CACHE_TTL_REVIEWS_LIST":  new(time.Duration),
		"SESSION_TTL":             new(time.Duration),
	}
	for key, dst := range durations {
		d, err := time.ParseDuration(viper.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	allowedOriginsStr := viper.GetString("CORS_ALLOWED_ORIGINS")
	allowedOrigins := strings.Split(allowedOriginsStr, ",")
	for i := range allowedOrigins {
		allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
	}

	config := &Config{
		Env: viper.GetString("ENV"),
		Server: ServerConfig{
			Port:            viper.GetString("SERVER_PORT"),
			ReadTimeout:     *durations["SERVER_READ_TIMEOUT"],
			WriteTimeout:    *durations["SERVER_WRITE_TIMEOUT"],
			ShutdownTimeout: *durations["SERVER_SHUTDOWN_TIMEOUT"],
			AllowedOrigins:  allowedOrigins,
		},
		Data: DataConfig{
			Dir:                 viper.GetString("DATA_DIR"),
			ReviewLogFile:       viper.GetString("REVIEW_LOG_FILE"),
			LegacyExportFile:    viper.GetString("LEGACY_EXPORT_FILE"),
			UsersFile:           viper.GetString("USERS_FILE"),
			MoviesFile:          viper.GetString("MOVIES_FILE"),
			CompactionThreshold: viper.GetInt("COMPACTION_THRESHOLD"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		NATS: NATSConfig{
			URL: viper.GetString("NATS_URL"),
		},
		Cache: CacheConfig{
			MovieRatingTTL: *durations["CACHE_TTL_MOVIE_RATING"],
			ReviewsListTTL: *durations["CACHE_TTL_REVIEWS_LIST"],
		},
		Session: SessionConfig{
			TTL: *durations["SESSION_TTL"],
		},
	}

	return config, nil
}

// ReviewLogPath returns the full path of the review operation log.
func (c *Config) ReviewLogPath() string {
	return filepath.Join(c.Data.Dir, c.Data.ReviewLogFile)
}

// LegacyExportPath returns the full path of the immutable IMDB export.
func (c *Config) LegacyExportPath() string {
	return filepath.Join(c.Data.Dir, c.Data.LegacyExportFile)
}

// UsersPath returns the full path of the user directory file.
func (c *Config) UsersPath() string {
	return filepath.Join(c.Data.Dir, c.Data.UsersFile)
}

// MoviesPath returns the full path of the movie catalog file.
func (c *Config) MoviesPath() string {
	return filepath.Join(c.Data.Dir, c.Data.MoviesFile)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}
