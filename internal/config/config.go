package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Backend  BackendConfig
	Billing  BillingConfig
	Storage  StorageConfig
	Events   EventsConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

func (c AppConfig) IsProduction() bool {
	return c.Environment == "production"
}

type DatabaseConfig struct {
	Connection string
	Verbose    bool
}

type AuthConfig struct {
	JWTSecret string
}

type BackendConfig struct {
	BaseURL          string
	InternalSecret   string
	Timeout          time.Duration
	TaskStatusPath   string // fmt pattern taking the task id
	TaskCancelPath   string // fmt pattern taking the task id
	TaskPollInterval time.Duration
}

type BillingConfig struct {
	BypassUserID string
	// FreePaths are generation sub-paths proxied without a debit.
	FreePaths []string
}

type StorageConfig struct {
	Driver       string // "local" or "s3"
	UploadDir    string
	PublicPrefix string
	S3           S3Config
}

type S3Config struct {
	AccessKey     string
	SecretKey     string
	Region        string
	Bucket        string
	Endpoint      string
	PublicBaseURL string
	UsePathStyle  bool
}

type EventsConfig struct {
	GenerationTaskTopic string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
			Verbose:    getEnvAsBool("DB_LOG_VERBOSE", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Backend: BackendConfig{
			BaseURL:          strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://127.0.0.1:8000"), "/"),
			InternalSecret:   getEnv("BACKEND_INTERNAL_SECRET", ""),
			Timeout:          time.Duration(getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 600)) * time.Second,
			TaskStatusPath:   getEnv("BACKEND_TASK_STATUS_PATH", "tasks/%s"),
			TaskCancelPath:   getEnv("BACKEND_TASK_CANCEL_PATH", "tasks/%s/cancel"),
			TaskPollInterval: time.Duration(getEnvAsInt("TASK_POLL_INTERVAL_SECONDS", 3)) * time.Second,
		},
		Billing: BillingConfig{
			BypassUserID: getEnv("BILLING_BYPASS_USER_ID", "dev-admin"),
			FreePaths:    getEnvAsList("BILLING_FREE_PATHS", []string{"interpret"}),
		},
		Storage: StorageConfig{
			Driver:       getEnv("STORAGE_DRIVER", "local"),
			UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
			PublicPrefix: strings.TrimRight(getEnv("UPLOAD_PUBLIC_PREFIX", "/uploads"), "/"),
			S3: S3Config{
				AccessKey:     getEnv("S3_ACCESS_KEY", ""),
				SecretKey:     getEnv("S3_SECRET_KEY", ""),
				Region:        getEnv("S3_REGION", "us-east-1"),
				Bucket:        getEnv("S3_BUCKET", ""),
				Endpoint:      getEnv("S3_ENDPOINT", ""),
				PublicBaseURL: strings.TrimRight(getEnv("S3_PUBLIC_BASE_URL", ""), "/"),
				UsePathStyle:  getEnvAsBool("S3_USE_PATH_STYLE", true),
			},
		},
		Events: EventsConfig{
			GenerationTaskTopic: getEnv("GENERATION_TASK_TOPIC", "GENERATION_TASK_TERMINAL"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value. An explicitly empty value yields no entries.
func getEnvAsList(key string, fallback []string) []string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.Trim(strings.TrimSpace(part), "/"); p != "" {
			out = append(out, p)
		}
	}
	return out
}
