package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	DB       DBConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	Session  SessionConfig
	Assist   AssistConfig
	Upload   UploadConfig
	Activity ActivityConfig
}

type ServerConfig struct {
	Port        string
	FrontendURL string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type SessionConfig struct {
	Secret   string
	TTLHours int
}

type AssistConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type UploadConfig struct {
	MaxBytes int64
}

type ActivityConfig struct {
	ExportInterval time.Duration
}

func Load() *Config {
	// Local development keeps overrides in a .env file; absence is fine.
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3001"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "docuvault"),
			Password: getEnv("DB_PASSWORD", "docuvault_secret"),
			Name:     getEnv("DB_NAME", "docuvault"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "docuvault"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "docuvault_secret"),
			Bucket:    getEnv("MINIO_BUCKET", "docuvault"),
			UseSSL:    getEnvAsBool("MINIO_USE_SSL", false),
		},
		Session: SessionConfig{
			Secret:   getEnv("SESSION_SECRET", "change-me-in-production"),
			TTLHours: getEnvAsInt("SESSION_TTL_HOURS", 24),
		},
		Assist: AssistConfig{
			BaseURL: getEnv("ASSIST_URL", "http://localhost:3002"),
			APIKey:  getEnv("ASSIST_API_KEY", ""),
			Timeout: getEnvAsDuration("ASSIST_TIMEOUT", 30*time.Second),
		},
		Upload: UploadConfig{
			MaxBytes: getEnvAsInt64("UPLOAD_MAX_BYTES", 50*1024*1024),
		},
		Activity: ActivityConfig{
			ExportInterval: getEnvAsDuration("ACTIVITY_EXPORT_INTERVAL", 1*time.Hour),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
