package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// StoreConfig holds settings of the JSON diary file.
type StoreConfig struct {
	DataDir           string
	FileName          string
	RepairPermissions bool
	BackupRetention   time.Duration
}

// Path returns the full location of the diary file.
func (s StoreConfig) Path() string {
	return filepath.Join(s.DataDir, s.FileName)
}

// UploadConfig holds settings of image attachments.
type UploadConfig struct {
	// Backend is "local" (a flat directory) or "minio".
	Backend  string
	Dir      string
	MaxBytes int64
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Version  string
	LogLevel string
	Location *time.Location
	Store    StoreConfig
	Upload   UploadConfig
	MinIO    MinIOConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:  getEnv("APP_HOST", "localhost:8080"),
		Port:     getEnv("PORT", "8080"),
		Version:  getEnv("APP_VERSION", ""),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Location: getEnvLocation("TZ_LOCATION", time.UTC),
		Store: StoreConfig{
			DataDir:           getEnv("DATA_DIR", filepath.Join("data", "db")),
			FileName:          getEnv("DIARY_FILE", "diaries.json"),
			RepairPermissions: getEnvBool("DIARY_REPAIR_PERMISSIONS", false),
			BackupRetention:   time.Duration(getEnvInt("BACKUP_RETENTION_DAYS", 30)) * 24 * time.Hour,
		},
		Upload: UploadConfig{
			Backend:  getEnv("STORAGE_BACKEND", "local"),
			Dir:      getEnv("UPLOAD_DIR", filepath.Join("data", "uploads")),
			MaxBytes: int64(getEnvInt("UPLOAD_MAX_BYTES", 5*1024*1024)),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			Prefix:    getEnv("MINIO_PREFIX", "uploads"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
	}
}

// Validate rejects settings under which the diary store and the local attachment directory
// would share files. The janitor treats every object in the upload directory as an attachment.
func (c *AppConfig) Validate() error {
	if b := strings.ToLower(c.Upload.Backend); b != "" && b != "local" {
		return nil
	}
	data, err := filepath.Abs(c.Store.DataDir)
	if err != nil {
		return fmt.Errorf("resolve DATA_DIR: %w", err)
	}
	uploads, err := filepath.Abs(c.Upload.Dir)
	if err != nil {
		return fmt.Errorf("resolve UPLOAD_DIR: %w", err)
	}
	if data == uploads {
		return fmt.Errorf("UPLOAD_DIR and DATA_DIR must be different directories, both are %q", data)
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvLocation(key string, def *time.Location) *time.Location {
	if v := os.Getenv(key); v != "" {
		loc, err := time.LoadLocation(v)
		if err == nil {
			return loc
		}
	}
	return def
}
