package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// PhotoMode selects how a normalized photo is attached to a report.
// The two modes are mutually exclusive per deployment.
type PhotoMode string

const (
	// PhotoModeInline embeds the photo in the report record as a
	// base64 data URL.
	PhotoModeInline PhotoMode = "inline"
	// PhotoModeUpload stores the photo blob in the object store and
	// keeps only its public URL on the report.
	PhotoModeUpload PhotoMode = "upload"
)

type Config struct {
	// Server
	Port           string
	TrustedProxies []string
	PublicBaseURL  string

	// Database
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	// Auth
	JWTSecret   string
	AdminEmails *AllowList

	// Photo pipeline. The historical deployments disagreed on these
	// constants (width 500 vs 800, quality 60 vs 70, delay 2.5s vs 4s),
	// so every one is configurable with a documented default.
	MaxImageWidth int
	JPEGQuality   int
	PhotoMode     PhotoMode
	UploadDir     string

	// Workflow
	SuccessDelay time.Duration

	// Export
	ExportStatusColumn bool
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		DBUser:         getEnv("DB_USER", "root"),
		DBPassword:     getEnv("DB_PASSWORD", "password"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "3306"),
		DBName:         getEnv("DB_NAME", "incidents"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		AdminEmails:    NewAllowList(getEnvList("ADMIN_EMAILS")),
		MaxImageWidth:  getEnvInt("MAX_IMAGE_WIDTH", 500),
		JPEGQuality:    getEnvInt("JPEG_QUALITY", 60),
		PhotoMode:      PhotoMode(getEnv("PHOTO_MODE", string(PhotoModeInline))),
		UploadDir:      getEnv("UPLOAD_DIR", "./uploads"),
		SuccessDelay:   getEnvDuration("SUCCESS_DELAY", 3*time.Second),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		ExportStatusColumn: getEnvBool("EXPORT_STATUS_COLUMN", true),
	}

	if cfg.PhotoMode != PhotoModeInline && cfg.PhotoMode != PhotoModeUpload {
		log.Printf("WARNING: unknown PHOTO_MODE %q, falling back to %q", cfg.PhotoMode, PhotoModeInline)
		cfg.PhotoMode = PhotoModeInline
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("WARNING: invalid value %q for %s, using default %d", value, key, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("WARNING: invalid value %q for %s, using default %t", value, key, defaultValue)
		return defaultValue
	}
	return b
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("WARNING: invalid value %q for %s, using default %s", value, key, defaultValue)
		return defaultValue
	}
	return d
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
