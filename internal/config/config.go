package config

import (
	"log"
	"os"
	"strconv"
	"time"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode

	GCPProjectID string
	GCPLocation  string
	ModelName    string

	StorageBackend string // "file", "firestore" o "memory"
	DataDir        string // snapshot + attachments location for "file"
	SaveInterval   time.Duration

	UseMockGateway bool // true = use mock even on GCP
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return def
}

// Load reads all env vars and builds the config
func Load() *Config {
	modeStr := getEnv("LIFELY_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	cfg := &Config{
		Mode: mode,

		GCPProjectID: getEnv("LIFELY_GCP_PROJECT", ""),
		GCPLocation:  getEnv("LIFELY_GCP_LOCATION", "us-central1"),
		ModelName:    getEnv("LIFELY_MODEL_NAME", "gemini-2.5-flash-lite"),

		StorageBackend: getEnv("LIFELY_STORAGE_BACKEND", "file"),
		DataDir:        getEnv("LIFELY_DATA_DIR", "./data"),
		SaveInterval:   getDurationEnv("LIFELY_SAVE_INTERVAL", 3*time.Second),

		UseMockGateway: getBoolEnv("LIFELY_USE_MOCK_GATEWAY", mode == ModeLocal),
	}

	// Minimal validation in GCP mode
	if cfg.Mode == ModeGCP && cfg.GCPProjectID == "" {
		log.Fatal("LIFELY_GCP_PROJECT must be set in gcp mode")
	}

	return cfg
}
