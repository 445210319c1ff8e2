// Package config provides configuration for the gasbook server.
// It loads settings from environment variables and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	// Port the HTTP server listens on.
	Port int

	// BlobPath is the bbolt file holding the database snapshot.
	BlobPath string

	// BlobName is the snapshot's key inside the blob file. Versioned
	// store identity, fixed at deployment.
	BlobName string

	// SeedPath is the fixed location of the seed image. Empty means
	// build the seed from the canonical schema instead.
	SeedPath string

	// LegacyPath is the predecessor key/value store file. Empty or
	// missing means nothing to migrate.
	LegacyPath string
}

// Load loads configuration from environment variables, applying
// defaults. A .env file in the working directory is honored if present.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	port, err := parseIntEnv("GASBOOK_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid GASBOOK_PORT: %w", err)
	}

	return &Config{
		Port:       port,
		BlobPath:   getEnvOrDefault("GASBOOK_BLOB_PATH", "./data/gasbook.blob"),
		BlobName:   getEnvOrDefault("GASBOOK_BLOB_NAME", "gasbook_v2"),
		SeedPath:   os.Getenv("GASBOOK_SEED_PATH"),
		LegacyPath: os.Getenv("GASBOOK_LEGACY_PATH"),
	}, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
