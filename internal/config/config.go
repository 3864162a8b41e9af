// backend-go/internal/config/config.go
package config

import (
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Reports  ReportsConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// BackendConfig points at the sales backend the reports are computed from.
type BackendConfig struct {
	BaseURL           string
	Token             string
	TimeoutSeconds    int
	RequestsPerSecond float64
	Burst             int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	URL      string
}

type AppConfig struct {
	ExportDir string
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

// StorageConfig selects where exported reports are uploaded.
// Driver is one of "local", "minio" or "gdrive".
type StorageConfig struct {
	Driver           string
	Endpoint         string
	AccessKey        string
	SecretKey        string
	Bucket           string
	Region           string
	UseSSL           bool
	Prefix           string
	DriveCredsJSON   string
	DriveCredsFile   string
	DriveFolderID    string
	DriveImpersonate string
}

type ReportsConfig struct {
	Timezone string
}

// Location returns the configured report timezone, falling back to UTC.
func (r ReportsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		log.Warn().Err(err).Str("timezone", r.Timezone).Msg("unknown report timezone, using UTC")
		return time.UTC
	}
	return loc
}

func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("LOG_LEVEL", "info")
		viper.SetDefault("SERVER_READ_TIMEOUT", 15)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("BACKEND_BASE_URL", "http://localhost:5000")
		viper.SetDefault("BACKEND_TOKEN", "")
		viper.SetDefault("BACKEND_TIMEOUT_SECONDS", 15)
		viper.SetDefault("BACKEND_RPS", 10)
		viper.SetDefault("BACKEND_BURST", 5)
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "reconcile")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DATABASE_URL", "")
		viper.SetDefault("APP_EXPORT_DIR", "./data/exports")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_REPORT_TTL_SECONDS", 60)
		viper.SetDefault("STORAGE_DRIVER", "local")
		viper.SetDefault("STORAGE_REGION", "us-east-1")
		viper.SetDefault("STORAGE_USE_SSL", true)
		viper.SetDefault("STORAGE_PREFIX", "reports")
		viper.SetDefault("REPORTS_TIMEZONE", "Africa/Abidjan")

		// Read from environment variables
		viper.AutomaticEnv()

		ensureDir(viper.GetString("APP_EXPORT_DIR"))

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				LogLevel:       viper.GetString("LOG_LEVEL"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Backend: BackendConfig{
				BaseURL:           viper.GetString("BACKEND_BASE_URL"),
				Token:             viper.GetString("BACKEND_TOKEN"),
				TimeoutSeconds:    viper.GetInt("BACKEND_TIMEOUT_SECONDS"),
				RequestsPerSecond: viper.GetFloat64("BACKEND_RPS"),
				Burst:             viper.GetInt("BACKEND_BURST"),
			},
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
				URL:      viper.GetString("DATABASE_URL"),
			},
			App: AppConfig{
				ExportDir: viper.GetString("APP_EXPORT_DIR"),
			},
			Cache: CacheConfig{
				Enabled:          viper.GetBool("CACHE_ENABLED"),
				RedisURL:         viper.GetString("REDIS_URL"),
				RedisHost:        viper.GetString("REDIS_HOST"),
				RedisPort:        viper.GetString("REDIS_PORT"),
				RedisPassword:    viper.GetString("REDIS_PASSWORD"),
				RedisDB:          viper.GetInt("REDIS_DB"),
				ReportTTLSeconds: viper.GetInt("CACHE_REPORT_TTL_SECONDS"),
			},
			Storage: StorageConfig{
				Driver:           viper.GetString("STORAGE_DRIVER"),
				Endpoint:         viper.GetString("STORAGE_ENDPOINT"),
				AccessKey:        viper.GetString("STORAGE_ACCESS_KEY"),
				SecretKey:        viper.GetString("STORAGE_SECRET_KEY"),
				Bucket:           viper.GetString("STORAGE_BUCKET"),
				Region:           viper.GetString("STORAGE_REGION"),
				UseSSL:           viper.GetBool("STORAGE_USE_SSL"),
				Prefix:           viper.GetString("STORAGE_PREFIX"),
				DriveCredsJSON:   viper.GetString("GOOGLE_SERVICE_ACCOUNT_JSON"),
				DriveCredsFile:   viper.GetString("GOOGLE_APPLICATION_CREDENTIALS"),
				DriveFolderID:    viper.GetString("DRIVE_FOLDER_ID"),
				DriveImpersonate: viper.GetString("DRIVE_IMPERSONATE_EMAIL"),
			},
			Reports: ReportsConfig{
				Timezone: viper.GetString("REPORTS_TIMEZONE"),
			},
		}
	})

	return instance
}

// DSN returns the Postgres connection string, preferring DATABASE_URL.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return "host=" + d.Host + " port=" + d.Port + " user=" + d.User +
		" password=" + d.Password + " dbname=" + d.DBName + " sslmode=" + d.SSLMode
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create directory")
		}
	}
}
