package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries process-level settings read from the environment.
type Config struct {
	DatabaseURL    string
	ServerPort     string
	AllowedOrigins string

	// RetailPartnerID is the reserved walk-in customer. Documents for this
	// partner must be settled immediately (open-account is rejected).
	RetailPartnerID int
	// GenericSupplierID is the reserved counterparty for opening stock entries.
	GenericSupplierID int
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ServerPort:     os.Getenv("SERVER_PORT"),
		AllowedOrigins: os.Getenv("ALLOWED_ORIGINS"),
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	var err error
	if cfg.RetailPartnerID, err = intEnv("RETAIL_PARTNER_ID", 0); err != nil {
		return nil, err
	}
	if cfg.GenericSupplierID, err = intEnv("GENERIC_SUPPLIER_ID", 0); err != nil {
		return nil, err
	}
	return cfg, nil
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, raw, err)
	}
	return v, nil
}
