// query.go — сервис чтения каталога: листинг, карточка файла,
// удаление, статистика. Все операции ограничены владельцем.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
	"github.com/bigkaa/goartstore/scan-module/internal/repository"
)

// Prometheus-метрики листинга.
var (
	listTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_list_total",
		Help: "Общее количество запросов листинга файлов.",
	})
	listDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sm_list_duration_seconds",
		Help:    "Длительность запросов листинга файлов.",
		Buckets: prometheus.DefBuckets,
	})
)

// Допустимые значения фильтра статуса.
var validStatusFilters = map[string]bool{
	string(model.ScanStatusClean):    true,
	string(model.ScanStatusInfected): true,
	string(model.ScanStatusError):    true,
	repository.StatusFilterUnscanned: true,
	repository.StatusFilterAll:       true,
}

// ListParams — фильтры и пагинация листинга. nil — фильтр не применяется.
type ListParams struct {
	FileID   *string
	Filename *string
	MimeType *string
	Status   *string
	Date     *time.Time
	// Page — номер страницы с 1 (0 — по умолчанию)
	Page int
	// Limit — размер страницы (0 — по умолчанию)
	Limit int
}

// ListResult — страница листинга.
type ListResult struct {
	Items []*model.FileWithScan
	// Total — количество по фильтру без пагинации
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// Pagination — умолчания пагинации.
type Pagination struct {
	DefaultLimit int
	MaxLimit     int
}

// QueryService — сервис чтения и удаления файлов.
type QueryService struct {
	files   repository.FileRepository
	staging FileRemover
	cache   *CacheService
	paging  Pagination
	logger  *slog.Logger
}

// NewQueryService создаёт сервис чтения.
func NewQueryService(
	files repository.FileRepository,
	staging FileRemover,
	cache *CacheService,
	paging Pagination,
	logger *slog.Logger,
) *QueryService {
	if paging.DefaultLimit < 1 {
		paging.DefaultLimit = 10
	}
	if paging.MaxLimit < paging.DefaultLimit {
		paging.MaxLimit = paging.DefaultLimit
	}
	return &QueryService{
		files:   files,
		staging: staging,
		cache:   cache,
		paging:  paging,
		logger:  logger.With(slog.String("component", "query_service")),
	}
}

// List возвращает страницу файлов пользователя, новые первыми.
func (s *QueryService) List(ctx context.Context, userID string, params ListParams) (*ListResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	if params.Status != nil && *params.Status != "" && !validStatusFilters[*params.Status] {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidArgument, *params.Status)
	}

	page, limit := s.normalizePaging(params.Page, params.Limit)

	start := time.Now()
	listTotal.Inc()

	items, total, err := s.files.List(ctx, repository.ListFilter{
		UserID:     userID,
		FileID:     params.FileID,
		Filename:   params.Filename,
		MimeType:   params.MimeType,
		Status:     params.Status,
		UploadedOn: params.Date,
		Limit:      limit,
		Offset:     (page - 1) * limit,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: листинг файлов: %w", ErrStorage, err)
	}

	duration := time.Since(start)
	listDuration.Observe(duration.Seconds())

	s.logger.Debug("Листинг выполнен",
		slog.String("user_id", userID),
		slog.Int("total", total),
		slog.Int("returned", len(items)),
		slog.Duration("duration", duration),
	)

	return &ListResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// GetByID возвращает карточку файла пользователя.
// Сначала проверяет LRU-кэш, при промахе — запрос к PostgreSQL, результат кэшируется.
func (s *QueryService) GetByID(ctx context.Context, fileID, userID string) (*model.FileWithScan, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	if record, ok := s.cache.Get(userID, fileID); ok {
		s.logger.Debug("Кэш hit для файла", slog.String("file_id", fileID))
		return record, nil
	}

	record, err := s.files.GetByID(ctx, fileID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: получение файла: %w", ErrStorage, err)
	}

	s.cache.Set(userID, record)
	s.logger.Debug("Файл загружен из БД",
		slog.String("file_id", fileID),
		slog.String("scan_status", string(record.ScanStatusOrEmpty())),
	)
	return record, nil
}

// Delete удаляет файл пользователя: сначала физический файл (отсутствие
// допустимо, сбой только логируется), затем записи scans и files.
func (s *QueryService) Delete(ctx context.Context, fileID, userID string) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	record, err := s.files.GetByID(ctx, fileID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: получение файла: %w", ErrStorage, err)
	}

	if err := s.staging.Remove(record.Filename); err != nil {
		stagingCleanupFailuresTotal.Inc()
		s.logger.Warn("Не удалось удалить физический файл, удаляем метаданные",
			slog.String("file_id", fileID),
			slog.String("filename", record.Filename),
			slog.String("error", err.Error()),
		)
	}

	if err := s.files.Delete(ctx, fileID, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// удалён параллельным запросом
			s.cache.Delete(userID, fileID)
			return ErrNotFound
		}
		return fmt.Errorf("%w: удаление файла: %w", ErrStorage, err)
	}
	s.cache.Delete(userID, fileID)

	s.logger.Info("Файл удалён",
		slog.String("file_id", fileID),
		slog.String("user_id", userID),
	)
	return nil
}

// Stats возвращает статистику по файлам пользователя.
func (s *QueryService) Stats(ctx context.Context, userID string) (*model.ScanStats, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	stats, err := s.files.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: статистика: %w", ErrStorage, err)
	}
	return stats, nil
}

// InfectedFileIDs возвращает идентификаторы заражённых файлов пользователя.
func (s *QueryService) InfectedFileIDs(ctx context.Context, userID string) ([]string, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	ids, err := s.files.InfectedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: заражённые файлы: %w", ErrStorage, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// normalizePaging применяет умолчания: page >= 1, 1 <= limit <= MaxLimit.
// page ограничена так, чтобы (page-1)*limit не переполнял int.
func (s *QueryService) normalizePaging(page, limit int) (pageVal, limitVal int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = s.paging.DefaultLimit
	}
	if limit > s.paging.MaxLimit {
		limit = s.paging.MaxLimit
	}
	if maxPage := math.MaxInt/limit + 1; page > maxPage {
		page = maxPage
	}
	return page, limit
}
