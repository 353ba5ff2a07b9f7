// main.go — точка входа Scan Module: приём файлов, антивирусная
// проверка, каталог результатов сканирования.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/goartstore/scan-module/internal/api/handlers"
	"github.com/bigkaa/goartstore/scan-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/scan-module/internal/api/openapi"
	"github.com/bigkaa/goartstore/scan-module/internal/config"
	"github.com/bigkaa/goartstore/scan-module/internal/database"
	"github.com/bigkaa/goartstore/scan-module/internal/repository"
	"github.com/bigkaa/goartstore/scan-module/internal/scanner"
	"github.com/bigkaa/goartstore/scan-module/internal/server"
	"github.com/bigkaa/goartstore/scan-module/internal/service"
	"github.com/bigkaa/goartstore/scan-module/internal/storage/staging"
)

func main() {
	// 1. Загрузка конфигурации из переменных окружения (и .env)
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Scan Module запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Применение миграций БД
	logger.Info("Применение миграций БД...")
	if err := database.Migrate(cfg, logger); err != nil {
		logger.Error("Ошибка миграций БД", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Подключение к PostgreSQL (pgxpool)
	pool, err := database.Connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 4.1 Адаптер pgxpool → *sql.DB для topologymetrics
	pgDB := stdlib.OpenDBFromPool(pool)
	defer pgDB.Close()

	// 5. Репозитории
	fileRepo := repository.NewFileRepository(pool)
	scanRepo := repository.NewScanRepository(pool)

	// 6. Сканер
	var paths scanner.PathMapper = scanner.NativePaths{}
	if cfg.ScannerPathMode == config.PathModeWSL {
		paths = scanner.WSLPaths{}
	}
	clam := scanner.NewClamAV(scanner.ExecRunner{}, paths, scanner.Options{
		Binary:       cfg.ScannerBinary,
		Wrapper:      cfg.ScannerWrapper,
		ProbeTimeout: cfg.ScannerProbeTimeout,
	}, logger)
	if version, probeErr := clam.Probe(ctx); probeErr != nil {
		logger.Warn("Сканер недоступен, загрузки получат fallback-вердикт",
			slog.String("binary", cfg.ScannerBinary),
			slog.String("error", probeErr.Error()),
		)
	} else {
		logger.Info("Сканер доступен", slog.String("version", version))
	}

	// 7. Staging-директория загрузок
	area, err := staging.New(cfg.UploadDir)
	if err != nil {
		logger.Error("Ошибка инициализации staging", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 8. Сервисы
	cache := service.NewCacheService(cfg.CacheMaxSize, cfg.CacheTTL)
	uploadSvc := service.NewUploadService(fileRepo, scanRepo, clam, area, logger)
	querySvc := service.NewQueryService(fileRepo, area, cache, service.Pagination{
		DefaultLimit: cfg.DefaultPageSize,
		MaxLimit:     cfg.MaxPageSize,
	}, logger)

	// 9. topologymetrics — мониторинг зависимостей (PostgreSQL + Identity Provider)
	dephealthSvc, dephealthErr := service.NewDephealthService(
		"scan-module",
		cfg.DephealthGroup,
		pgDB,
		cfg.DatabaseURLForLabels(),
		cfg.JWKSURL,
		cfg.DephealthCheckInterval,
		cfg.DephealthIsEntry,
		logger,
	)
	if dephealthErr != nil {
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", dephealthErr.Error()),
		)
	} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
		logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
	}

	// 10. Очистка staging по расписанию
	var janitor *service.StagingJanitor
	if cfg.StagingSweepSchedule != "" {
		janitor, err = service.NewStagingJanitor(area, cfg.StagingSweepSchedule, cfg.StagingMaxAge, logger)
		if err != nil {
			logger.Error("Ошибка настройки очистки staging", slog.String("error", err.Error()))
			os.Exit(1)
		}
		janitor.Start()
	}

	// 11. JWT middleware и readiness checkers
	jwtAuth, err := middleware.NewJWTAuth(
		cfg.JWKSURL,
		cfg.CACertPath,
		cfg.JWTIssuer,
		cfg.JWKSClientTimeout,
		cfg.JWKSRefreshInterval,
		cfg.JWTLeeway,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания JWT middleware", slog.String("error", err.Error()))
		os.Exit(1)
	}
	idpChecker, err := middleware.NewJWKSReadinessChecker(cfg.JWKSURL, cfg.CACertPath, cfg.JWKSClientTimeout)
	if err != nil {
		logger.Error("Ошибка создания JWKS readiness checker", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 12. OpenAPI контракт
	contract, err := openapi.Load(ctx)
	if err != nil {
		logger.Error("Ошибка загрузки OpenAPI контракта", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 13. Обработчики
	healthHandler := handlers.NewHealthHandler(database.NewReadinessChecker(pool), idpChecker)
	apiHandler := handlers.NewAPIHandler(uploadSvc, querySvc, area, cfg.MaxUploadSize, logger)

	mount := func(r chi.Router) {
		healthHandler.Routes(r)
		r.Method(http.MethodGet, "/api/openapi.json", contract.Handler())
		apiHandler.Routes(r)
	}

	// 14. HTTP-сервер: метрики → access log → JWT → валидация по контракту
	srv := server.New(cfg, logger, mount,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
		server.JWTAuthWithExclusions(jwtAuth.Middleware(), "/health/", "/metrics", "/api/openapi.json"),
		contract.ValidationMiddleware(logger),
	)
	runErr := srv.Run(ctx)
	if runErr != nil {
		logger.Error("Ошибка сервера", slog.String("error", runErr.Error()))
	}

	// 15. Остановка фоновых задач
	logger.Info("Останавливаем фоновые задачи...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if janitor != nil {
		janitor.Stop(shutdownCtx)
	}
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Scan Module остановлен")
	if runErr != nil {
		os.Exit(1)
	}
}
