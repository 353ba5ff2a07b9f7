// Пакет config — загрузка и валидация конфигурации Scan Module
// из переменных окружения (опционально — из файла .env).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Режимы трансляции путей для сканера.
const (
	// PathModeNative — путь передаётся сканеру как есть.
	PathModeNative = "native"
	// PathModeWSL — путь вида C:\dir\file транслируется в /mnt/c/dir/file.
	PathModeWSL = "wsl"
)

// Config содержит все параметры конфигурации Scan Module.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера (по умолчанию 8040)
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	// Таймаут чтения HTTP-сервера (по умолчанию 30s)
	HTTPReadTimeout time.Duration
	// Таймаут записи HTTP-сервера (по умолчанию 5m — покрывает полный цикл сканирования)
	HTTPWriteTimeout time.Duration
	// Таймаут простоя HTTP-сервера (по умолчанию 120s)
	HTTPIdleTimeout time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown (по умолчанию 10s)
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- JWT / JWKS ---

	// JWKSURL — JWKS endpoint Identity Provider (обязательный)
	JWKSURL string
	// JWTIssuer — ожидаемый issuer (пустой — не проверяется)
	JWTIssuer string
	// CACertPath — путь к CA-сертификату для TLS к JWKS (опционально)
	CACertPath string
	// JWKSClientTimeout — таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// JWKSRefreshInterval — интервал обновления ключей
	JWKSRefreshInterval time.Duration
	// JWTLeeway — допустимое отклонение часов при проверке exp/nbf
	JWTLeeway time.Duration

	// --- Сканер ---

	// ScannerBinary — исполняемый файл сканера (по умолчанию clamscan)
	ScannerBinary string
	// ScannerWrapper — команда-обёртка (например, wsl); пустая — запуск напрямую
	ScannerWrapper string
	// ScannerPathMode — native или wsl
	ScannerPathMode string
	// ScannerProbeTimeout — таймаут проверки доступности (clamscan -V)
	ScannerProbeTimeout time.Duration

	// --- Staging ---

	// UploadDir — директория временного хранения загруженных файлов
	UploadDir string
	// MaxUploadSize — максимальный размер тела multipart-запроса в байтах
	MaxUploadSize int64
	// StagingSweepSchedule — cron-расписание очистки staging (пустое — отключено)
	StagingSweepSchedule string
	// StagingMaxAge — возраст, после которого забытые файлы удаляются
	StagingMaxAge time.Duration

	// --- Кэш и пагинация ---

	CacheMaxSize    int
	CacheTTL        time.Duration
	DefaultPageSize int
	MaxPageSize     int

	// --- Dephealth ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
	DephealthIsEntry       bool
}

// Load загружает конфигурацию из переменных окружения.
// Перед чтением переменных подгружается .env (если файл существует);
// уже заданные переменные окружения имеют приоритет.
//
//nolint:cyclop,funlen // линейный разбор переменных
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf(".env: %w", err)
	}

	cfg := &Config{}
	var err error

	// --- Сервер ---

	cfg.Port, err = getEnvInt("SM_PORT", 8040)
	if err != nil {
		return nil, fmt.Errorf("SM_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("SM_PORT: значение %d вне диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("SM_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("SM_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("SM_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("SM_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	if cfg.HTTPReadTimeout, err = getEnvDuration("SM_HTTP_READ_TIMEOUT", 30*time.Second); err != nil {
		return nil, fmt.Errorf("SM_HTTP_READ_TIMEOUT: %w", err)
	}
	if cfg.HTTPWriteTimeout, err = getEnvDuration("SM_HTTP_WRITE_TIMEOUT", 5*time.Minute); err != nil {
		return nil, fmt.Errorf("SM_HTTP_WRITE_TIMEOUT: %w", err)
	}
	if cfg.HTTPIdleTimeout, err = getEnvDuration("SM_HTTP_IDLE_TIMEOUT", 120*time.Second); err != nil {
		return nil, fmt.Errorf("SM_HTTP_IDLE_TIMEOUT: %w", err)
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("SM_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("SM_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	cfg.DBHost = getEnvDefault("SM_DB_HOST", "localhost")
	if cfg.DBPort, err = getEnvInt("SM_DB_PORT", 5432); err != nil {
		return nil, fmt.Errorf("SM_DB_PORT: %w", err)
	}
	cfg.DBName = getEnvDefault("SM_DB_NAME", "scanstore")
	cfg.DBUser = getEnvDefault("SM_DB_USER", "scanstore")
	if cfg.DBPassword, err = getEnvRequired("SM_DB_PASSWORD"); err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("SM_DB_SSL_MODE", "disable")

	// --- JWT / JWKS ---

	if cfg.JWKSURL, err = getEnvRequired("SM_JWKS_URL"); err != nil {
		return nil, err
	}
	if _, err := url.ParseRequestURI(cfg.JWKSURL); err != nil {
		return nil, fmt.Errorf("SM_JWKS_URL: некорректный URL %q", cfg.JWKSURL)
	}
	cfg.JWTIssuer = getEnvDefault("SM_JWT_ISSUER", "")
	cfg.CACertPath = getEnvDefault("SM_CA_CERT_PATH", "")
	if cfg.JWKSClientTimeout, err = getEnvDuration("SM_JWKS_CLIENT_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("SM_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	if cfg.JWKSRefreshInterval, err = getEnvDuration("SM_JWKS_REFRESH_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("SM_JWKS_REFRESH_INTERVAL: %w", err)
	}
	if cfg.JWTLeeway, err = getEnvDuration("SM_JWT_LEEWAY", 5*time.Second); err != nil {
		return nil, fmt.Errorf("SM_JWT_LEEWAY: %w", err)
	}

	// --- Сканер ---

	cfg.ScannerBinary = getEnvDefault("SM_SCANNER_BINARY", "clamscan")
	cfg.ScannerWrapper = getEnvDefault("SM_SCANNER_WRAPPER", "")
	cfg.ScannerPathMode = strings.ToLower(getEnvDefault("SM_SCANNER_PATH_MODE", PathModeNative))
	if cfg.ScannerPathMode != PathModeNative && cfg.ScannerPathMode != PathModeWSL {
		return nil, fmt.Errorf("SM_SCANNER_PATH_MODE: недопустимый режим %q, допустимые: native, wsl", cfg.ScannerPathMode)
	}
	if cfg.ScannerProbeTimeout, err = getEnvDuration("SM_SCANNER_PROBE_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("SM_SCANNER_PROBE_TIMEOUT: %w", err)
	}

	// --- Staging ---

	cfg.UploadDir = getEnvDefault("SM_UPLOAD_DIR", "./uploads")
	if cfg.MaxUploadSize, err = getEnvInt64("SM_MAX_UPLOAD_SIZE", 100<<20); err != nil {
		return nil, fmt.Errorf("SM_MAX_UPLOAD_SIZE: %w", err)
	}
	if cfg.MaxUploadSize <= 0 {
		return nil, fmt.Errorf("SM_MAX_UPLOAD_SIZE: значение должно быть > 0")
	}
	cfg.StagingSweepSchedule = os.Getenv("SM_STAGING_SWEEP_SCHEDULE")
	if _, set := os.LookupEnv("SM_STAGING_SWEEP_SCHEDULE"); !set {
		cfg.StagingSweepSchedule = "@every 10m"
	}
	if cfg.StagingMaxAge, err = getEnvDuration("SM_STAGING_MAX_AGE", time.Hour); err != nil {
		return nil, fmt.Errorf("SM_STAGING_MAX_AGE: %w", err)
	}

	// --- Кэш и пагинация ---

	if cfg.CacheMaxSize, err = getEnvInt("SM_CACHE_MAX_SIZE", 1000); err != nil {
		return nil, fmt.Errorf("SM_CACHE_MAX_SIZE: %w", err)
	}
	if cfg.CacheTTL, err = getEnvDuration("SM_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, fmt.Errorf("SM_CACHE_TTL: %w", err)
	}
	if cfg.DefaultPageSize, err = getEnvInt("SM_DEFAULT_PAGE_SIZE", 10); err != nil {
		return nil, fmt.Errorf("SM_DEFAULT_PAGE_SIZE: %w", err)
	}
	if cfg.MaxPageSize, err = getEnvInt("SM_MAX_PAGE_SIZE", 100); err != nil {
		return nil, fmt.Errorf("SM_MAX_PAGE_SIZE: %w", err)
	}
	if cfg.DefaultPageSize < 1 || cfg.DefaultPageSize > cfg.MaxPageSize {
		return nil, fmt.Errorf("SM_DEFAULT_PAGE_SIZE: значение %d должно быть в диапазоне 1-%d",
			cfg.DefaultPageSize, cfg.MaxPageSize)
	}

	// --- Dephealth ---

	cfg.DephealthGroup = getEnvDefault("SM_DEPHEALTH_GROUP", "scanstore")
	if cfg.DephealthCheckInterval, err = getEnvDuration("SM_DEPHEALTH_CHECK_INTERVAL", 15*time.Second); err != nil {
		return nil, fmt.Errorf("SM_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	if cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false); err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// MigrateURL возвращает URL для golang-migrate (драйвер pgx5).
func (c *Config) MigrateURL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.DBUser), url.QueryEscape(c.DBPassword),
		c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// DatabaseURLForLabels возвращает URL PostgreSQL без пароля — для лейблов dephealth.
func (c *Config) DatabaseURLForLabels() string {
	return fmt.Sprintf("postgres://%s:%d/%s", c.DBHost, c.DBPort, c.DBName)
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvInt64 — то же, что getEnvInt, для размеров в байтах.
func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("значение должно быть > 0")
	}
	return d, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
