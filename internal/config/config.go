package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig 汇总运行服务所需的全部配置。
type AppConfig struct {
	ListenAddr    string
	Port          string
	GinMode       string
	LogLevel      string
	SessionSecret string
	Timezone      string

	Database DatabaseConfig
	Location LocationConfig
	Photos   PhotoConfig
	Minio    MinioConfig
	Redis    RedisConfig
	Upstream UpstreamConfig
	Backup   BackupConfig
}

// DatabaseConfig 选择 sqlite 或 postgres。
type DatabaseConfig struct {
	Driver string
	Path   string
	DSN    string
}

// LocationConfig 是会话中尚无位置时使用的默认坐标。
type LocationConfig struct {
	Lat  float64
	Lon  float64
	Name string
}

// PhotoConfig 控制本地照片目录与缩放尺寸。
type PhotoConfig struct {
	Dir          string
	MaxDimension int
}

// MinioConfig 配置后 Endpoint 非空时照片改存对象存储。
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig 为空地址时不启用缓存。
type RedisConfig struct {
	Addr     string
	Password string
	TTL      time.Duration
}

// UpstreamConfig 是天气与地理编码服务的地址。
type UpstreamConfig struct {
	ForecastBaseURL  string
	GeocodeBaseURL   string
	GeocodeUserAgent string
	Timeout          time.Duration
}

// BackupConfig 为空 Cron 时不启用定时备份。
type BackupConfig struct {
	Cron string
	Dir  string
	Keep int
}

// Load 读取可选的 env 文件与环境变量，为缺失项提供默认值并校验。
func Load(envFile string) (*AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	} else {
		// 没有 .env 时直接使用环境变量
		_ = godotenv.Load()
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromEnv() (*AppConfig, error) {
	var errs []error

	port := getenv("APP_PORT", "8080")
	cfg := &AppConfig{
		Port:          port,
		ListenAddr:    getenv("LISTEN_ADDR", ":"+port),
		GinMode:       getenv("GIN_MODE", "release"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		SessionSecret: getenv("SESSION_SECRET", "fishinglog-dev-secret"),
		Timezone:      getenv("TIMEZONE", "Pacific/Auckland"),
		Database: DatabaseConfig{
			Driver: strings.ToLower(getenv("DATABASE_DRIVER", "sqlite")),
			Path:   getenv("DATABASE_PATH", "fishinglog.db"),
			DSN:    getenv("DATABASE_DSN", ""),
		},
		Location: LocationConfig{
			Lat:  getFloat("DEFAULT_LAT", -36.8485, &errs),
			Lon:  getFloat("DEFAULT_LON", 174.7633, &errs),
			Name: getenv("DEFAULT_LOCATION_NAME", "Auckland"),
		},
		Photos: PhotoConfig{
			Dir:          getenv("PHOTO_DIR", "data/photos"),
			MaxDimension: getInt("PHOTO_MAX_DIMENSION", 1600, &errs),
		},
		Minio: MinioConfig{
			Endpoint:  getenv("MINIO_ENDPOINT", ""),
			AccessKey: getenv("MINIO_ACCESS_KEY", ""),
			SecretKey: getenv("MINIO_SECRET_KEY", ""),
			Bucket:    getenv("MINIO_BUCKET", "fishinglog-photos"),
			UseSSL:    getBool("MINIO_USE_SSL", false, &errs),
		},
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			TTL:      getDuration("CACHE_TTL", time.Hour, &errs),
		},
		Upstream: UpstreamConfig{
			ForecastBaseURL:  getenv("FORECAST_BASE_URL", "https://api.open-meteo.com"),
			GeocodeBaseURL:   getenv("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org"),
			GeocodeUserAgent: getenv("GEOCODE_USER_AGENT", "fishinglog/1.0"),
			Timeout:          getDuration("HTTP_TIMEOUT", 10*time.Second, &errs),
		},
		Backup: BackupConfig{
			Cron: getenv("BACKUP_CRON", ""),
			Dir:  getenv("BACKUP_DIR", "data/backups"),
			Keep: getInt("BACKUP_KEEP", 7, &errs),
		},
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate 检查配置之间的依赖关系。
func (c *AppConfig) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("DATABASE_PATH must be provided for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("DATABASE_DSN must be provided for postgres")
		}
	default:
		return fmt.Errorf("DATABASE_DRIVER %q is not supported", c.Database.Driver)
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	if c.Location.Lat < -90 || c.Location.Lat > 90 || c.Location.Lon < -180 || c.Location.Lon > 180 {
		return errors.New("DEFAULT_LAT/DEFAULT_LON out of range")
	}
	if c.Photos.MaxDimension <= 0 {
		return errors.New("PHOTO_MAX_DIMENSION must be positive")
	}
	if c.Minio.Endpoint != "" && (c.Minio.AccessKey == "" || c.Minio.SecretKey == "") {
		return errors.New("MINIO_ACCESS_KEY and MINIO_SECRET_KEY must be provided with MINIO_ENDPOINT")
	}
	if c.Backup.Cron != "" && c.Backup.Keep < 1 {
		return errors.New("BACKUP_KEEP must be at least 1")
	}
	return nil
}

// TimeLocation 返回配置的时区，Validate 之后不会失败。
func (c *AppConfig) TimeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getenv(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64, errs *[]error) float64 {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return f
}

func getBool(key string, fallback bool, errs *[]error) bool {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := getenv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
