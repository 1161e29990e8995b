// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends accepted by STORAGE_BACKEND.
const (
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// minSecretLen is the shortest JWT_SECRET accepted: 256 bits for HS256.
const minSecretLen = 32

// Config holds all configuration values for the API server.
// Values are populated by Load from environment variables.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"] (Vite dev server).
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string

	// StorageBackend selects the BirthdayRepo implementation.
	// One of postgres, dynamodb, redis, memory. Defaults to postgres.
	StorageBackend string

	// DatabaseURL is the Postgres connection string. Required for postgres.
	DatabaseURL string
	// RunMigrations applies the embedded goose migrations at start-up. Defaults to true.
	RunMigrations bool

	DynamoTable      string // defaults to "Birthdays"
	DynamoOwnerIndex string // defaults to "UserIdIndex"
	DynamoEndpoint   string // optional; set for DynamoDB Local
	AWSRegion        string // defaults to "us-east-1"
	AWSProfile       string

	// RedisAddr is host:port of the Redis server. Required for redis.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// JWTSecret is the HS256 key used to verify bearer tokens. Required,
	// at least 32 bytes.
	JWTSecret string
	// JWTLeeway tolerates clock skew when validating token times. Defaults to 30s.
	JWTLeeway time.Duration

	// ConcealForbidden reports another owner's record as 404 instead of 403.
	ConcealForbidden bool

	// MaxBodyBytes caps request bodies. Defaults to 1 MiB.
	MaxBodyBytes int64
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error listing any required variables that are not set, or any
// variables whose values cannot be parsed.
func Load() (Config, error) {
	var missing, invalid []string

	cfg := Config{
		Port:             getEnv("PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		CORSOrigins:      splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		StorageBackend:   strings.ToLower(getEnv("STORAGE_BACKEND", BackendPostgres)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DynamoTable:      getEnv("DYNAMODB_TABLE", "Birthdays"),
		DynamoOwnerIndex: getEnv("DYNAMODB_OWNER_INDEX", "UserIdIndex"),
		DynamoEndpoint:   os.Getenv("DYNAMODB_ENDPOINT"),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		AWSProfile:       os.Getenv("AWS_PROFILE"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
	}

	var err error
	if cfg.RunMigrations, err = getBool("RUN_MIGRATIONS", true); err != nil {
		invalid = append(invalid, "RUN_MIGRATIONS")
	}
	if cfg.ConcealForbidden, err = getBool("CONCEAL_FORBIDDEN", false); err != nil {
		invalid = append(invalid, "CONCEAL_FORBIDDEN")
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil || cfg.RedisDB < 0 {
		invalid = append(invalid, "REDIS_DB")
	}
	maxBody, err := getInt("MAX_BODY_BYTES", 1<<20)
	if err != nil || maxBody <= 0 {
		invalid = append(invalid, "MAX_BODY_BYTES")
	}
	cfg.MaxBodyBytes = int64(maxBody)
	if cfg.JWTLeeway, err = getDuration("JWT_LEEWAY", 30*time.Second); err != nil || cfg.JWTLeeway < 0 {
		invalid = append(invalid, "JWT_LEEWAY")
	}

	switch cfg.StorageBackend {
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case BackendRedis:
		if cfg.RedisAddr == "" {
			missing = append(missing, "REDIS_ADDR")
		}
	case BackendDynamoDB, BackendMemory:
	default:
		invalid = append(invalid, "STORAGE_BACKEND")
	}

	switch {
	case cfg.JWTSecret == "":
		missing = append(missing, "JWT_SECRET")
	case len(cfg.JWTSecret) < minSecretLen:
		invalid = append(invalid, "JWT_SECRET")
	}

	var problems []string
	if len(missing) > 0 {
		problems = append(problems, "required environment variables not set: "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		problems = append(problems, "invalid environment variables: "+strings.Join(invalid, ", "))
	}
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable named by key,
// or fallback if the variable is not set or is empty.
func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
