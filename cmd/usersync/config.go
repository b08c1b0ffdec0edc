package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// config is the server's environment-driven configuration. A .env file in
// the working directory is honored for local development.
type config struct {
	Port                string
	LogLevel            string
	StoreBackend        string // "firestore", "postgres" or "memory"
	UsersCollection     string
	GoogleCloudProject  string
	DatabaseURL         string
	StripeWebhookSecret string
}

func loadConfig() (config, error) {
	// Missing .env is fine; real environments set variables directly.
	_ = godotenv.Load()

	cfg := config{
		Port:                getenv("PORT", "8001"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		StoreBackend:        getenv("USERSYNC_STORE", "firestore"),
		UsersCollection:     getenv("USERS_COLLECTION", "users"),
		GoogleCloudProject:  os.Getenv("GOOGLE_CLOUD_PROJECT"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
	}

	if cfg.StripeWebhookSecret == "" {
		return cfg, fmt.Errorf("STRIPE_WEBHOOK_SECRET environment variable is required")
	}
	if cfg.StoreBackend == "firestore" && cfg.GoogleCloudProject == "" {
		return cfg, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required for the firestore store")
	}
	if cfg.StoreBackend == "postgres" && cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL environment variable is required for the postgres store")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
