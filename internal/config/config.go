package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds runtime settings for the relay process.
type Config struct {
	Port           string
	JWTSecret      string
	TokenTTL       time.Duration
	RedisURL       string
	InstanceID     string
	AllowedOrigins []string
	SendBuffer     int
	FanoutBuffer   int
	FanoutTimeout  time.Duration
}

// Load reads .env.local or .env when present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Println(".env not found, using environment variables")
		}
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:           getenv("PORT", "8080"),
		JWTSecret:      os.Getenv("RELAY_JWT_SECRET"),
		RedisURL:       os.Getenv("REDIS_URL"),
		InstanceID:     getenv("RELAY_INSTANCE_ID", uuid.NewString()),
		AllowedOrigins: splitAndTrim(os.Getenv("RELAY_ALLOWED_ORIGINS")),
	}

	if cfg.JWTSecret == "" {
		return Config{}, errors.New("RELAY_JWT_SECRET is not set")
	}

	ttl, err := time.ParseDuration(getenv("RELAY_TOKEN_TTL", "24h"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid RELAY_TOKEN_TTL: %w", err)
	}
	cfg.TokenTTL = ttl

	buf, err := strconv.Atoi(getenv("RELAY_SEND_BUFFER", "256"))
	if err != nil || buf <= 0 {
		return Config{}, fmt.Errorf("invalid RELAY_SEND_BUFFER %q", os.Getenv("RELAY_SEND_BUFFER"))
	}
	cfg.SendBuffer = buf

	fanoutBuf, err := strconv.Atoi(getenv("RELAY_FANOUT_BUFFER", "1024"))
	if err != nil || fanoutBuf <= 0 {
		return Config{}, fmt.Errorf("invalid RELAY_FANOUT_BUFFER %q", os.Getenv("RELAY_FANOUT_BUFFER"))
	}
	cfg.FanoutBuffer = fanoutBuf

	fanoutTimeout, err := time.ParseDuration(getenv("RELAY_FANOUT_TIMEOUT", "500ms"))
	if err != nil || fanoutTimeout <= 0 {
		return Config{}, fmt.Errorf("invalid RELAY_FANOUT_TIMEOUT %q", os.Getenv("RELAY_FANOUT_TIMEOUT"))
	}
	cfg.FanoutTimeout = fanoutTimeout

	return cfg, nil
}

func (c Config) Address() string {
	return ":" + c.Port
}

// OriginAllowed reports whether a browser origin may open a socket.
func (c Config) OriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, o := range c.AllowedOrigins {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitAndTrim(input string) []string {
	out := make([]string, 0)
	for _, v := range strings.Split(input, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
