package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App      AppConfig
	Log      LogConfig
	Database DatabaseConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Catalog  CatalogConfig
	JWT      JWTConfig
	Proof    ProofConfig
	Upload   UploadConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Env         string
	Port        string
	CORSOrigins []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// DatabaseConfig selects and configures the order store
type DatabaseConfig struct {
	Driver     string // postgres, sqlite, memory
	URL        string
	Host       string
	Port       int
	User       string
	Password   string
	DBName     string
	SSLMode    string
	SQLitePath string
	MaxConns   int
}

// StorageConfig selects and configures the preview image store
type StorageConfig struct {
	Type       string // memory, filesystem, s3, drive
	LocalPath  string
	PublicPath string // URL prefix for previews served by this process

	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	DriveFolderID        string
	DriveCredentialsFile string
	DriveCredentialsJSON string
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CatalogConfig points at the read-only product feed
type CatalogConfig struct {
	BaseURL  string
	CacheTTL time.Duration
	Timeout  time.Duration
}

// JWTConfig holds the admin token verification settings
type JWTConfig struct {
	Secret string
	Issuer string
}

// ProofConfig configures headless Chrome for proof sheets
type ProofConfig struct {
	ChromePath string
	Timeout    time.Duration
}

// UploadConfig bounds incoming order envelopes
type UploadConfig struct {
	MaxBytes            int64
	MaxPreviewDimension int
	MaxPreviewPixels    int
}

var (
	validDrivers      = []string{"postgres", "sqlite", "memory"}
	validStorageTypes = []string{"memory", "filesystem", "s3", "drive"}
)

// LoadDotEnv overlays variables from a .env file onto the process
// environment. A missing file is not an error.
func LoadDotEnv(path string) (bool, error) {
	if err := godotenv.Overload(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("error loading %s: %w", path, err)
	}
	return true, nil
}

// Load loads configuration from config.yaml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with MYMERCH_ prefix (e.g., MYMERCH_DATABASE_DRIVER)
// 2. config.yaml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("MYMERCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Env:         v.GetString("app.env"),
			Port:        v.GetString("app.port"),
			CORSOrigins: v.GetStringSlice("app.cors_origins"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Database: DatabaseConfig{
			Driver:     strings.ToLower(v.GetString("database.driver")),
			URL:        v.GetString("database.url"),
			Host:       v.GetString("database.host"),
			Port:       v.GetInt("database.port"),
			User:       v.GetString("database.user"),
			Password:   v.GetString("database.password"),
			DBName:     v.GetString("database.dbname"),
			SSLMode:    v.GetString("database.sslmode"),
			SQLitePath: v.GetString("database.sqlite_path"),
			MaxConns:   v.GetInt("database.max_conns"),
		},
		Storage: StorageConfig{
			Type:                 strings.ToLower(v.GetString("storage.type")),
			LocalPath:            v.GetString("storage.local_path"),
			PublicPath:           v.GetString("storage.public_path"),
			S3Bucket:             v.GetString("storage.s3_bucket"),
			S3Region:             v.GetString("storage.s3_region"),
			S3Endpoint:           v.GetString("storage.s3_endpoint"),
			S3AccessKey:          v.GetString("storage.s3_access_key"),
			S3SecretKey:          v.GetString("storage.s3_secret_key"),
			DriveFolderID:        v.GetString("storage.drive_folder_id"),
			DriveCredentialsFile: v.GetString("storage.drive_credentials_file"),
			DriveCredentialsJSON: v.GetString("storage.drive_credentials_json"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Catalog: CatalogConfig{
			BaseURL:  v.GetString("catalog.base_url"),
			CacheTTL: v.GetDuration("catalog.cache_ttl"),
			Timeout:  v.GetDuration("catalog.timeout"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Proof: ProofConfig{
			ChromePath: v.GetString("proof.chrome_path"),
			Timeout:    v.GetDuration("proof.timeout"),
		},
		Upload: UploadConfig{
			MaxBytes:            v.GetInt64("upload.max_bytes"),
			MaxPreviewDimension: v.GetInt("upload.max_preview_dimension"),
			MaxPreviewPixels:    v.GetInt("upload.max_preview_pixels"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	cfg.App.Port = strings.TrimPrefix(cfg.App.Port, ":")
	if len(cfg.App.CORSOrigins) == 0 {
		cfg.App.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
		if cfg.IsProduction() {
			cfg.Log.Format = "json"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "memory"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "mymerch.db"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data/previews"
	}
	if cfg.Storage.PublicPath == "" {
		cfg.Storage.PublicPath = "/api/previews/"
	}
	if !strings.HasSuffix(cfg.Storage.PublicPath, "/") {
		cfg.Storage.PublicPath += "/"
	}
	if cfg.Storage.S3Region == "" {
		cfg.Storage.S3Region = "us-east-1"
	}
	if cfg.Catalog.CacheTTL == 0 {
		cfg.Catalog.CacheTTL = 5 * time.Minute
	}
	if cfg.Catalog.Timeout == 0 {
		cfg.Catalog.Timeout = 10 * time.Second
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "mymerch"
	}
	if cfg.JWT.Secret == "" && !cfg.IsProduction() {
		cfg.JWT.Secret = "development-secret-change-me"
	}
	if cfg.Proof.Timeout == 0 {
		cfg.Proof.Timeout = 30 * time.Second
	}
	if cfg.Upload.MaxBytes == 0 {
		cfg.Upload.MaxBytes = 32 << 20 // 32MB
	}
	if cfg.Upload.MaxPreviewDimension == 0 {
		cfg.Upload.MaxPreviewDimension = 1600
	}
	if cfg.Upload.MaxPreviewPixels == 0 {
		cfg.Upload.MaxPreviewPixels = 40_000_000 // ~160MB decoded NRGBA
	}
}

func (c *Config) validate() error {
	if !contains(validDrivers, c.Database.Driver) {
		return fmt.Errorf("invalid database driver %q, must be one of %s", c.Database.Driver, strings.Join(validDrivers, ", "))
	}
	if c.Database.Driver == "postgres" && c.Database.URL == "" && (c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "") {
		return fmt.Errorf("postgres requires MYMERCH_DATABASE_URL or host, user and dbname")
	}
	if !contains(validStorageTypes, c.Storage.Type) {
		return fmt.Errorf("invalid storage type %q, must be one of %s", c.Storage.Type, strings.Join(validStorageTypes, ", "))
	}
	if c.Storage.Type == "s3" && c.Storage.S3Bucket == "" {
		return fmt.Errorf("s3 storage requires MYMERCH_STORAGE_S3_BUCKET")
	}
	if c.Storage.Type == "drive" {
		if c.Storage.DriveFolderID == "" {
			return fmt.Errorf("drive storage requires MYMERCH_STORAGE_DRIVE_FOLDER_ID")
		}
		if c.Storage.DriveCredentialsFile == "" && c.Storage.DriveCredentialsJSON == "" {
			return fmt.Errorf("drive storage requires credentials file or JSON")
		}
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("MYMERCH_JWT_SECRET is required in production")
	}
	if c.Upload.MaxBytes < 0 {
		return fmt.Errorf("upload max bytes must be positive")
	}
	if c.Upload.MaxPreviewPixels < 0 {
		return fmt.Errorf("upload max preview pixels must be positive")
	}
	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// PostgresDSN builds the connection string for the postgres driver
func (d DatabaseConfig) PostgresDSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
