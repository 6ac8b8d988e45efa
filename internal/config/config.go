// Package config holds the typed runtime configuration of the portal and the
// fixed domain enumerations (roles, categories, statuses, upload allow-lists).
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full set of settings read at startup.
type Config struct {
	Addr        string
	SecretKey   string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MaxUploadBytes   int64
	PostUploadDir    string
	ProfileUploadDir string

	SessionTTL    time.Duration
	SecureCookies bool
	DefaultLang   string

	LoginMaxFailures   int
	LoginFailureWindow time.Duration

	CORSAllowedOrigins []string

	TelegramBotToken string
	TelegramChatID   int64

	// Empty AdminPassword skips the default admin bootstrap.
	AdminUsername string
	AdminEmail    string
	AdminPassword string

	ReportFontPath string

	LogLevel string
	GinMode  string
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() Config {
	return Config{
		Addr:        getEnv("ADDR", ":8080"),
		SecretKey:   getEnv("SECRET_KEY", "dev-secret"),
		DatabaseURL: getEnv("DATABASE_URL", "sqlite://portal.db"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getInt("REDIS_DB", 0),

		MaxUploadBytes:   int64(getInt("MAX_UPLOAD_MB", 10)) << 20,
		PostUploadDir:    getEnv("POST_UPLOAD_DIR", "uploads/posts"),
		ProfileUploadDir: getEnv("PROFILE_UPLOAD_DIR", "uploads/profiles"),

		SessionTTL:    getDuration("SESSION_TTL", 12*time.Hour),
		SecureCookies: getBool("SECURE_COOKIES", false),
		DefaultLang:   getEnv("DEFAULT_LANG", "ko"),

		LoginMaxFailures:   getInt("LOGIN_MAX_FAILURES", 5),
		LoginFailureWindow: getDuration("LOGIN_FAILURE_WINDOW", 15*time.Minute),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   int64(getInt("TELEGRAM_CHAT_ID", 0)),

		AdminUsername: getEnv("ADMIN_USERNAME", "admin"),
		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		ReportFontPath: getEnv("REPORT_FONT_PATH", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		GinMode:  getEnv("GIN_MODE", "release"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %t", key, v, fallback)
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %s", key, v, fallback)
		return fallback
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
