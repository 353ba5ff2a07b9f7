// handler.go — HTTP-обработчики API Scan Module поверх сервисного слоя.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/goartstore/scan-module/internal/api/errors"
	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
	"github.com/bigkaa/goartstore/scan-module/internal/service"
)

// Uploader — оркестратор загрузки.
type Uploader interface {
	Upload(ctx context.Context, userID string, staged *model.StagedFile) (*model.FileWithScan, error)
}

// Catalog — чтение и удаление файлов пользователя.
type Catalog interface {
	List(ctx context.Context, userID string, params service.ListParams) (*service.ListResult, error)
	GetByID(ctx context.Context, fileID, userID string) (*model.FileWithScan, error)
	Delete(ctx context.Context, fileID, userID string) error
	Stats(ctx context.Context, userID string) (*model.ScanStats, error)
	InfectedFileIDs(ctx context.Context, userID string) ([]string, error)
}

// Stager — приём тела загрузки во временную директорию.
type Stager interface {
	Stage(reader io.Reader, originalName, mimeType, userID string) (*model.StagedFile, error)
}

// APIHandler — обработчики /api/v1.
type APIHandler struct {
	uploader      Uploader
	catalog       Catalog
	stager        Stager
	maxUploadSize int64
	logger        *slog.Logger
}

// NewAPIHandler создаёт обработчики API.
// maxUploadSize — предел тела multipart-запроса в байтах.
func NewAPIHandler(
	uploader Uploader,
	catalog Catalog,
	stager Stager,
	maxUploadSize int64,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		uploader:      uploader,
		catalog:       catalog,
		stager:        stager,
		maxUploadSize: maxUploadSize,
		logger:        logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует маршруты /api/v1.
func (h *APIHandler) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/files", h.UploadFile)
		r.Get("/files", h.ListFiles)
		r.Get("/files/{file_id}", h.GetFile)
		r.Delete("/files/{file_id}", h.DeleteFile)
		r.Get("/scans/stats", h.ScanStats)
		r.Get("/scans/infected", h.InfectedFiles)
	})
}

// writeServiceError переводит ошибку сервисного слоя в HTTP-ответ.
// Внутренние ошибки логируются, клиенту уходит общее сообщение.
func (h *APIHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error, op string) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		apierrors.Unauthorized(w, "Требуется аутентификация")
	case errors.Is(err, service.ErrMissingPayload):
		apierrors.ValidationError(w, "Файл не передан: ожидается multipart-поле file")
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, "Файл не найден")
	case errors.Is(err, service.ErrInvalidArgument):
		apierrors.ValidationError(w, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), "Ошибка обработки запроса",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
