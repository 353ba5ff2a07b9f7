// upload.go — оркестрация загрузки: запись метаданных, сканирование,
// сохранение вердикта, удаление staged-файла.
// Шаги не транзакционны: при сбое после вставки файла остаётся запись
// без результата сканирования, читатели видят её как unscanned.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
	"github.com/bigkaa/goartstore/scan-module/internal/repository"
	"github.com/bigkaa/goartstore/scan-module/internal/scanner"
)

// Prometheus-метрики загрузки и сканирования.
var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_uploads_total",
		Help: "Количество загрузок по итоговому вердикту (clean, infected, error, failed).",
	}, []string{"status"})
	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sm_scan_duration_seconds",
		Help:    "Длительность проверки и сканирования одного файла.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})
	scannerFallbackTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_scanner_fallback_total",
		Help: "Количество загрузок, получивших fallback-вердикт из-за недоступного сканера.",
	})
	stagingCleanupFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_staging_cleanup_failures_total",
		Help: "Количество неудачных удалений файлов из staging.",
	})
)

// FileRemover — удаление файла из staging по имени (отсутствие не ошибка).
type FileRemover interface {
	Remove(filename string) error
}

// UploadService — оркестратор загрузки.
type UploadService struct {
	files   repository.FileRepository
	scans   repository.ScanRepository
	scanner scanner.Scanner
	staging FileRemover
	logger  *slog.Logger
}

// NewUploadService создаёт оркестратор загрузки.
func NewUploadService(
	files repository.FileRepository,
	scans repository.ScanRepository,
	sc scanner.Scanner,
	staging FileRemover,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		files:   files,
		scans:   scans,
		scanner: sc,
		staging: staging,
		logger:  logger.With(slog.String("component", "upload_service")),
	}
}

// Upload принимает staged-файл пользователя и возвращает его карточку с вердиктом.
// Staged-файл удаляется на любом пути выхода; сбой удаления только логируется.
// Отмена ctx после проверки входных данных не прерывает загрузку.
func (s *UploadService) Upload(ctx context.Context, userID string, staged *model.StagedFile) (result *model.FileWithScan, err error) {
	if staged != nil {
		defer s.release(staged)
	}
	defer func() {
		if err != nil {
			uploadsTotal.WithLabelValues("failed").Inc()
		}
	}()

	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if staged == nil {
		return nil, ErrMissingPayload
	}

	// Шаги выполняются до конца и при отключении клиента.
	ctx = context.WithoutCancel(ctx)

	// 1. Метаданные файла
	rec := &model.FileRecord{
		Filename:     staged.Filename,
		OriginalName: staged.OriginalName,
		StorageKey:   model.StorageKeyLocal,
		Size:         staged.Size,
		UserID:       userID,
		MimeType:     staged.MimeType,
		Checksum:     staged.Checksum,
	}
	if err := s.files.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: сохранение файла: %w", ErrStorage, err)
	}

	// 2-3. Проверка доступности и сканирование
	verdict := s.scan(ctx, rec.ID, staged.Path)

	// 4. Вердикт
	scan := &model.ScanRecord{
		FileID:    rec.ID,
		Status:    verdict.Status,
		VirusName: verdict.VirusName,
		Log:       verdict.Log,
		Version:   verdict.Version,
	}
	if err := s.scans.Create(ctx, scan); err != nil {
		s.logger.Error("Вердикт вычислен, но не сохранён",
			slog.String("file_id", rec.ID),
			slog.String("status", string(verdict.Status)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: сохранение результата сканирования: %w", ErrStorage, err)
	}

	uploadsTotal.WithLabelValues(string(scan.Status)).Inc()
	s.logger.Info("Файл загружен и просканирован",
		slog.String("file_id", rec.ID),
		slog.String("user_id", userID),
		slog.Int64("size", rec.Size),
		slog.String("status", string(scan.Status)),
	)

	return &model.FileWithScan{FileRecord: *rec, Scan: scan}, nil
}

// scan получает вердикт; недоступный сканер даёт FallbackVerdict.
func (s *UploadService) scan(ctx context.Context, fileID, path string) scanner.Verdict {
	start := time.Now()
	defer func() { scanDuration.Observe(time.Since(start).Seconds()) }()

	version, err := s.scanner.Probe(ctx)
	if err != nil {
		return s.fallback(fileID, err)
	}

	verdict, err := s.scanner.Scan(ctx, path)
	if err != nil {
		return s.fallback(fileID, err)
	}
	verdict.Version = version
	return verdict
}

// fallback логирует причину и возвращает fallback-вердикт.
func (s *UploadService) fallback(fileID string, cause error) scanner.Verdict {
	scannerFallbackTotal.Inc()
	level := slog.LevelWarn
	if !errors.Is(cause, scanner.ErrUnavailable) {
		level = slog.LevelError
	}
	s.logger.Log(context.Background(), level, "Сканер недоступен, применён fallback-вердикт",
		slog.String("file_id", fileID),
		slog.String("error", cause.Error()),
	)
	return scanner.FallbackVerdict()
}

// release удаляет staged-файл.
func (s *UploadService) release(staged *model.StagedFile) {
	if err := s.staging.Remove(staged.Filename); err != nil {
		stagingCleanupFailuresTotal.Inc()
		s.logger.Warn("Не удалось удалить staged-файл",
			slog.String("filename", staged.Filename),
			slog.String("error", err.Error()),
		)
	}
}
