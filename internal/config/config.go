package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/liamcoop/credit/internal/logger"
)

type Config struct {
	Port            int    `validate:"min=1,max=65535"`
	ArtifactDir     string `validate:"required"`
	RiskPolicyFile  string
	DatabaseURL     string
	Log             logger.Config
	CORSOrigins     []string
	ShutdownTimeout time.Duration `validate:"gt=0"`
	RequestTimeout  time.Duration `validate:"gt=0"`
}

// Load reads an optional .env file and then the environment.
// Variables already set in the environment win over .env entries.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           GetEnvInt("PORT", 8080),
		ArtifactDir:    GetEnv("ARTIFACT_DIR", "artifacts"),
		RiskPolicyFile: GetEnv("RISK_POLICY_FILE", ""),
		DatabaseURL:    GetEnv("DATABASE_URL", ""),
		Log: logger.Config{
			Level:       GetEnv("LOG_LEVEL", "INFO"),
			Format:      GetEnv("LOG_FORMAT", "json"),
			SampleRate:  GetEnvInt("ERROR_SAMPLE_RATE", 100),
			OTELEnabled: strings.EqualFold(GetEnv("OTEL_ENABLED", "false"), "true"),
			ServiceName: GetEnv("OTEL_SERVICE_NAME", "credit-scoring"),
		},
		CORSOrigins:     splitCSV(GetEnv("CORS_ALLOWED_ORIGINS", "*")),
		ShutdownTimeout: GetEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		RequestTimeout:  GetEnvDuration("REQUEST_TIMEOUT", 60*time.Second),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func GetEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
