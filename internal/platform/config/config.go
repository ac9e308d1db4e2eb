package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	DatabaseURL   string
	JWTSigningKey string
	// AdminTokenHash is the bcrypt hash of the operational admin token.
	// Empty disables the admin surface.
	AdminTokenHash string

	Redis      RedisConfig
	Kafka      KafkaConfig
	Profile    ProfileConfig
	Suggestion SuggestionConfig
}

// RedisConfig configures the query cache. An empty URL disables caching.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the relationship-event sink. Empty brokers disable
// the outbox worker.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// ProfileConfig locates the external profile directory.
type ProfileConfig struct {
	BaseURL string
	Timeout time.Duration
}

// SuggestionConfig bounds the ranking engine.
type SuggestionConfig struct {
	StrategyTimeout time.Duration
	DefaultLimit    int
	MaxLimit        int
}

// FromEnv builds a Server config from environment variables so main stays
// lean. Defaults target local development; production overrides everything.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; must be overridden in production.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:           envOr("LINKUP_ADDR", ":8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSigningKey:  jwtSigningKey,
		AdminTokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_EVENTS_TOPIC", "linkup.connection-events"),
		},
		Profile: ProfileConfig{
			BaseURL: os.Getenv("PROFILE_DIRECTORY_URL"),
			Timeout: envDurationOr("PROFILE_DIRECTORY_TIMEOUT", 3*time.Second),
		},
		Suggestion: SuggestionConfig{
			StrategyTimeout: envDurationOr("SUGGESTION_STRATEGY_TIMEOUT", 2*time.Second),
			DefaultLimit:    envIntOr("SUGGESTION_DEFAULT_LIMIT", 10),
			MaxLimit:        envIntOr("SUGGESTION_MAX_LIMIT", 50),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
