package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// EnvironmentType represents the application environment
type EnvironmentType string

const (
	EnvironmentDevelopment EnvironmentType = "development"
	EnvironmentProduction  EnvironmentType = "production"
)

// String returns the string representation of the environment type
func (e EnvironmentType) String() string {
	return string(e)
}

// IsValid checks if the environment type is valid
func (e EnvironmentType) IsValid() bool {
	switch e {
	case EnvironmentDevelopment, EnvironmentProduction:
		return true
	default:
		return false
	}
}

// Environment holds the environment variables. Secrets live here and never
// in the YAML file.
type Environment struct {
	Environment EnvironmentType `env:"ENVIRONMENT"`
	ConfigPath  string          `env:"CONFIG_PATH"`
	ScanSecret  string          `env:"SCAN_SECRET"`  // HMAC secret for scan request signing
	TokenSecret string          `env:"TOKEN_SECRET"` // HS256 secret for bearer tokens
}

// LoadEnv loads the environment variables, reading a .env file first when
// one is present.
func LoadEnv() *Environment {
	_ = godotenv.Load()

	envStr := getEnv("ENVIRONMENT", string(EnvironmentDevelopment))
	envStr = strings.TrimSpace(envStr)
	envStr = strings.ToLower(envStr)
	envType := EnvironmentType(envStr)

	// Validate and default to development if invalid
	if !envType.IsValid() {
		envType = EnvironmentDevelopment
	}

	return &Environment{
		Environment: envType,
		ConfigPath:  getEnv("CONFIG_PATH", "config.yaml"),
		ScanSecret:  getEnv("SCAN_SECRET", ""),
		TokenSecret: getEnv("TOKEN_SECRET", ""),
	}
}

// Validate checks that the required secrets are present. In development,
// missing secrets fall back to throwaway defaults so the service still
// boots locally.
func (e *Environment) Validate() error {
	if e.Environment == EnvironmentProduction {
		if e.ScanSecret == "" {
			return fmt.Errorf("SCAN_SECRET is required in production environment")
		}
		if e.TokenSecret == "" {
			return fmt.Errorf("TOKEN_SECRET is required in production environment")
		}
		return nil
	}
	if e.ScanSecret == "" {
		e.ScanSecret = "dev-scan-secret"
	}
	if e.TokenSecret == "" {
		e.TokenSecret = "dev-token-secret"
	}
	return nil
}

// getEnv gets the environment variable with a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}
