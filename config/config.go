package config

import (
	"crypto/rand"
	"encoding/base64"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	// MinSecretLength is the minimum required length for signing secrets in production
	MinSecretLength = 32
)

type Config struct {
	ServerPort  string
	DBPath      string
	Environment string
	UploadDir   string
	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged to console instead of sent
	// Tokens - staff sessions and applicant magic links are independent domains
	StaffJWTSecret      string
	StaffTokenHours     int
	MagicLinkSecret     string
	MagicLinkExpiryMins int
	// Other
	AllowedOrigins   []string
	AppURL           string
	TursoDatabaseURL string
	TursoAuthToken   string
	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
}

func Load() *Config {
	// Load .env file (ignore error if not present - use system env vars)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")

	staffSecret := getEnv("STAFF_JWT_SECRET", "")
	ValidateSigningSecret("STAFF_JWT_SECRET", staffSecret, environment)
	if staffSecret == "" && environment != "production" {
		staffSecret = GenerateSecureSecret()
		log.Println("[INFO] Generated temporary staff token secret for development. Set STAFF_JWT_SECRET env var for persistence.")
	}

	magicSecret := getEnv("MAGIC_LINK_SECRET", "")
	ValidateSigningSecret("MAGIC_LINK_SECRET", magicSecret, environment)
	if magicSecret == "" && environment != "production" {
		magicSecret = GenerateSecureSecret()
		log.Println("[INFO] Generated temporary magic link secret for development. Set MAGIC_LINK_SECRET env var for persistence.")
	}

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		DBPath:              getEnv("DB_PATH", "db/app.db"),
		Environment:         environment,
		UploadDir:           getEnv("UPLOAD_DIR", "static/uploads"),
		ResendAPIKey:        getEnv("RESEND_API_KEY", ""),
		EmailFrom:           getEnv("EMAIL_FROM", "noreply@zakatflow.org"),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "ZakatFlow"),
		EmailTestMode:       getEnvBool("EMAIL_TEST_MODE", true), // Default true for safety
		StaffJWTSecret:      staffSecret,
		StaffTokenHours:     getEnvInt("STAFF_TOKEN_HOURS", 24),
		MagicLinkSecret:     magicSecret,
		MagicLinkExpiryMins: getEnvInt("MAGIC_LINK_EXPIRY_MINS", 60),
		AllowedOrigins:      strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AppURL:              getEnv("APP_URL", "http://localhost:8080"),
		TursoDatabaseURL:    getEnv("TURSO_DATABASE_URL", ""),
		TursoAuthToken:      getEnv("TURSO_AUTH_TOKEN", ""),
		R2AccountID:         getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:       getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey:   getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:        getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:         getEnv("R2_PUBLIC_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Printf("Using default value for %s: %s", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept common boolean representations
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[WARNING] Invalid integer for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// ValidateSigningSecret validates a token signing secret meets security requirements
// In production, it must be at least 32 bytes and not a known insecure default
func ValidateSigningSecret(name, secret, environment string) error {
	// Known insecure defaults that must be rejected
	insecureDefaults := []string{
		"dev-secret-change-in-production",
		"change-me",
		"secret",
		"development",
		"test",
		"",
	}

	for _, insecure := range insecureDefaults {
		if strings.EqualFold(secret, insecure) {
			if environment == "production" {
				log.Fatalf("[CRITICAL] %s is set to an insecure default value. Generate a secure random secret with: openssl rand -base64 32", name)
			}
			log.Printf("[WARNING] %s is set to an insecure default value. This is acceptable only in development.", name)
			return nil
		}
	}

	if environment == "production" {
		if len(secret) < MinSecretLength {
			log.Fatalf("[CRITICAL] %s must be at least %d characters in production (current: %d). Generate with: openssl rand -base64 32", name, MinSecretLength, len(secret))
		}
	}

	return nil
}

// GenerateSecureSecret generates a cryptographically secure random secret
// This is used only for development when no secret is provided
func GenerateSecureSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		log.Printf("[WARNING] Failed to generate secure secret: %v", err)
		return ""
	}
	return base64.StdEncoding.EncodeToString(bytes)
}
