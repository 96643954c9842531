package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	Env      string
	Port     string
	LogLevel string

	ComfyBaseURL       string
	MaxRetries         int
	RetryDelay         time.Duration
	PollInterval       time.Duration
	RequestTimeout     time.Duration
	UploadMaxDimension int
	WorkflowTemplate   string

	ImportEnabled  bool
	HeadlessImport bool

	MongoURI      string
	DBName        string
	AWSRegion     string
	AWSBucketName string

	JWTSecret      string
	SendGridAPIKey string
	NotifyEmail    string
)

// LoadConfig loads environment variables from .env file
func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values or system environment variables")
	}

	Env = getEnv("ENV", "development")
	Port = getEnv("PORT", "8080")
	LogLevel = getEnv("LOG_LEVEL", "info")

	ComfyBaseURL = strings.TrimRight(getEnv("COMFYUI_BASE_URL", "http://127.0.0.1:8188"), "/")
	MaxRetries = getEnvAsInt("MAX_RETRIES", 3)
	RetryDelay = getEnvAsDuration("RETRY_DELAY", time.Second)
	PollInterval = getEnvAsDuration("POLL_INTERVAL", time.Second)
	RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Second)
	UploadMaxDimension = getEnvAsInt("UPLOAD_MAX_DIMENSION", 2048)
	WorkflowTemplate = os.Getenv("WORKFLOW_TEMPLATE") // empty uses the built-in graph

	ImportEnabled = getEnvAsBool("IMPORT_ENABLED", true)
	HeadlessImport = getEnvAsBool("HEADLESS_IMPORT", false)

	// Archive is disabled unless MONGO_URI is set
	MongoURI = os.Getenv("MONGO_URI")
	DBName = getEnv("DB_NAME", "fitly")
	AWSRegion = getEnv("AWS_REGION", "ap-south-1")
	AWSBucketName = os.Getenv("AWS_BUCKET_NAME")

	JWTSecret = os.Getenv("JWT_SECRET")
	SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	NotifyEmail = os.Getenv("NOTIFY_EMAIL")
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Invalid value for %s (%q), using %d", key, v, fallback)
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("1500ms") or a bare number of milliseconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("Invalid value for %s (%q), using %s", key, v, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
