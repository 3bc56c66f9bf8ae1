package config

import (
	"os"
	"strings"
	"time"
)

// Config captures everything cmd/server needs to wire the process.
type Config struct {
	Addr          string
	RedisURL      string
	PostgresURL   string
	KafkaBrokers  []string
	KafkaTopic    string
	JWTSigningKey string

	// SessionTimeout is the inactivity window after which a registration
	// session is treated as absent.
	SessionTimeout time.Duration
	// VerificationTTL is how long a confirmed verification stays valid.
	// Deliberately larger than SessionTimeout so a verified channel
	// outlives any single sitting.
	VerificationTTL time.Duration
	// ResumeTokenTTL bounds how long a resume token is honored.
	ResumeTokenTTL time.Duration
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Addr:            getEnv("MEDBOARD_ADDR", ":8080"),
		RedisURL:        os.Getenv("MEDBOARD_REDIS_URL"),
		PostgresURL:     os.Getenv("MEDBOARD_POSTGRES_URL"),
		KafkaTopic:      getEnv("MEDBOARD_AUDIT_TOPIC", "medboard.registration.audit"),
		JWTSigningKey:   getEnv("MEDBOARD_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SessionTimeout:  getDuration("MEDBOARD_SESSION_TIMEOUT", 30*time.Minute),
		VerificationTTL: getDuration("MEDBOARD_VERIFICATION_TTL", 24*time.Hour),
		ResumeTokenTTL:  getDuration("MEDBOARD_RESUME_TOKEN_TTL", 7*24*time.Hour),
	}

	if brokers := os.Getenv("MEDBOARD_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
