package config

import (
	"log/slog"
	"strings"
	"testing"
	"time"
)

// setEnvs устанавливает переменные окружения на время теста.
func setEnvs(t *testing.T, envs map[string]string) {
	t.Helper()
	for k, v := range envs {
		t.Setenv(k, v)
	}
}

// minimalEnvs возвращает минимальный набор обязательных переменных.
func minimalEnvs() map[string]string {
	return map[string]string{
		"SM_DB_PASSWORD": "secret",
		"SM_JWKS_URL":    "https://idp.example.lan/realms/scanstore/protocol/openid-connect/certs",
	}
}

func TestLoad_MinimalConfig(t *testing.T) {
	setEnvs(t, minimalEnvs())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}

	if cfg.Port != 8040 {
		t.Errorf("Port = %d, ожидается 8040", cfg.Port)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, ожидается Info", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, ожидается json", cfg.LogFormat)
	}
	if cfg.DBHost != "localhost" || cfg.DBPort != 5432 {
		t.Errorf("DB = %s:%d, ожидается localhost:5432", cfg.DBHost, cfg.DBPort)
	}
	if cfg.ScannerBinary != "clamscan" {
		t.Errorf("ScannerBinary = %q, ожидается clamscan", cfg.ScannerBinary)
	}
	if cfg.ScannerPathMode != PathModeNative {
		t.Errorf("ScannerPathMode = %q, ожидается native", cfg.ScannerPathMode)
	}
	if cfg.UploadDir != "./uploads" {
		t.Errorf("UploadDir = %q, ожидается ./uploads", cfg.UploadDir)
	}
	if cfg.MaxUploadSize != 100<<20 {
		t.Errorf("MaxUploadSize = %d, ожидается %d", cfg.MaxUploadSize, 100<<20)
	}
	if cfg.DefaultPageSize != 10 || cfg.MaxPageSize != 100 {
		t.Errorf("пагинация = %d/%d, ожидается 10/100", cfg.DefaultPageSize, cfg.MaxPageSize)
	}
	if cfg.StagingSweepSchedule != "@every 10m" {
		t.Errorf("StagingSweepSchedule = %q, ожидается @every 10m", cfg.StagingSweepSchedule)
	}
	if cfg.StagingMaxAge != time.Hour {
		t.Errorf("StagingMaxAge = %v, ожидается 1h", cfg.StagingMaxAge)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, ожидается 10s", cfg.ShutdownTimeout)
	}
	if cfg.DephealthIsEntry {
		t.Error("DephealthIsEntry = true, ожидается false")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	for _, key := range []string{"SM_DB_PASSWORD", "SM_JWKS_URL"} {
		t.Run(key, func(t *testing.T) {
			envs := minimalEnvs()
			envs[key] = ""
			setEnvs(t, envs)

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() без %s не вернул ошибку", key)
			}
			if !strings.Contains(err.Error(), key) {
				t.Errorf("ошибка %q не содержит имя переменной %s", err, key)
			}
		})
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"порт не число", "SM_PORT", "abc"},
		{"порт вне диапазона", "SM_PORT", "70000"},
		{"неизвестный уровень логов", "SM_LOG_LEVEL", "trace"},
		{"неизвестный формат логов", "SM_LOG_FORMAT", "xml"},
		{"неизвестный режим путей", "SM_SCANNER_PATH_MODE", "cygwin"},
		{"некорректная длительность", "SM_CACHE_TTL", "5 minutes"},
		{"нулевой лимит загрузки", "SM_MAX_UPLOAD_SIZE", "0"},
		{"страница больше максимума", "SM_DEFAULT_PAGE_SIZE", "500"},
		{"некорректный bool", "DEPHEALTH_ISENTRY", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envs := minimalEnvs()
			envs[tt.key] = tt.val
			setEnvs(t, envs)

			if _, err := Load(); err == nil {
				t.Errorf("Load() с %s=%q не вернул ошибку", tt.key, tt.val)
			}
		})
	}
}

func TestLoad_Overrides(t *testing.T) {
	envs := minimalEnvs()
	envs["SM_PORT"] = "9100"
	envs["SM_SCANNER_PATH_MODE"] = "WSL"
	envs["SM_SCANNER_WRAPPER"] = "wsl"
	envs["SM_STAGING_SWEEP_SCHEDULE"] = ""
	envs["DEPHEALTH_ISENTRY"] = "true"
	setEnvs(t, envs)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() вернул ошибку: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, ожидается 9100", cfg.Port)
	}
	if cfg.ScannerPathMode != PathModeWSL {
		t.Errorf("ScannerPathMode = %q, ожидается wsl", cfg.ScannerPathMode)
	}
	if cfg.ScannerWrapper != "wsl" {
		t.Errorf("ScannerWrapper = %q, ожидается wsl", cfg.ScannerWrapper)
	}
	if cfg.StagingSweepSchedule != "" {
		t.Errorf("StagingSweepSchedule = %q, ожидается пустое (janitor отключён)", cfg.StagingSweepSchedule)
	}
	if !cfg.DephealthIsEntry {
		t.Error("DephealthIsEntry = false, ожидается true")
	}
}

func TestConfig_DatabaseURLs(t *testing.T) {
	cfg := &Config{
		DBHost: "db", DBPort: 5433, DBName: "scans",
		DBUser: "svc", DBPassword: "p@ss", DBSSLMode: "require",
	}

	if got, want := cfg.DatabaseDSN(), "postgres://svc:p%40ss@db:5433/scans?sslmode=require"; got != want {
		t.Errorf("DatabaseDSN() = %q, ожидается %q", got, want)
	}
	if got := cfg.MigrateURL(); !strings.HasPrefix(got, "pgx5://") {
		t.Errorf("MigrateURL() = %q, ожидается схема pgx5://", got)
	}
	if got := cfg.DatabaseURLForLabels(); strings.Contains(got, "p%40ss") {
		t.Errorf("DatabaseURLForLabels() = %q содержит пароль", got)
	}
}
