// files.go — /api/v1/files: загрузка, список, карточка, удаление.
package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	apierrors "github.com/bigkaa/goartstore/scan-module/internal/api/errors"
	"github.com/bigkaa/goartstore/scan-module/internal/api/middleware"
	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
	"github.com/bigkaa/goartstore/scan-module/internal/service"
)

// uploadField — имя multipart-поля с файлом.
const uploadField = "file"

const defaultMimeType = "application/octet-stream"

// fileResponse — FileWithScan в JSON. Поля сканирования null, пока
// результата нет.
type fileResponse struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	OriginalName string     `json:"originalName"`
	StorageKey   string     `json:"storageKey"`
	FileSize     int64      `json:"fileSize"`
	UserID       string     `json:"userId"`
	MimeType     string     `json:"mimeType"`
	Checksum     string     `json:"checksum"`
	UploadedAt   time.Time  `json:"uploadedAt"`
	Status       *string    `json:"status"`
	VirusName    *string    `json:"virusName"`
	ScanLog      *string    `json:"scanLog"`
	ScanVersion  *string    `json:"scanVersion"`
	ScannedAt    *time.Time `json:"scannedAt"`
}

type fileListResponse struct {
	Items      []fileResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}

func toFileResponse(f *model.FileWithScan) fileResponse {
	resp := fileResponse{
		ID:           f.ID,
		Filename:     f.Filename,
		OriginalName: f.OriginalName,
		StorageKey:   f.StorageKey,
		FileSize:     f.Size,
		UserID:       f.UserID,
		MimeType:     f.MimeType,
		Checksum:     f.Checksum,
		UploadedAt:   f.UploadedAt,
	}
	if s := f.Scan; s != nil {
		status := string(s.Status)
		scannedAt := s.ScannedAt
		resp.Status = &status
		resp.VirusName = s.VirusName
		resp.ScanLog = &s.Log
		resp.ScanVersion = &s.Version
		resp.ScannedAt = &scannedAt
	}
	return resp
}

// UploadFile — POST /api/v1/files (multipart, поле file).
// Тело читается потоком прямо в staging, без буферизации в памяти.
func (h *APIHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.SubjectFromContext(r.Context())
	if userID == "" {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	mr, err := r.MultipartReader()
	if err != nil {
		apierrors.ValidationError(w, "Ожидается multipart/form-data")
		return
	}

	staged, err := h.stageUpload(mr, userID)
	if err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			apierrors.PayloadTooLarge(w, "Размер загрузки превышает допустимый")
		case errors.Is(err, errMalformedMultipart):
			apierrors.ValidationError(w, "Некорректное multipart-тело")
		default:
			h.logger.Error("Ошибка приёма файла",
				slog.String("user_id", userID),
				slog.String("error", err.Error()),
			)
			apierrors.InternalError(w, "Не удалось принять файл")
		}
		return
	}

	// staged == nil: поля file нет, сервис вернёт ErrMissingPayload
	result, err := h.uploader.Upload(r.Context(), userID, staged)
	if err != nil {
		h.writeServiceError(w, r, err, "upload")
		return
	}

	writeJSON(w, http.StatusCreated, toFileResponse(result))
}

var errMalformedMultipart = errors.New("некорректное multipart-тело")

// stageUpload ищет первое поле file и пишет его в staging.
// Остальные части пропускаются. nil без ошибки — файла в запросе нет.
func (h *APIHandler) stageUpload(mr *multipart.Reader, userID string) (*model.StagedFile, error) {
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, err
			}
			return nil, errors.Join(errMalformedMultipart, err)
		}

		if part.FormName() != uploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		mimeType := part.Header.Get("Content-Type")
		if mimeType == "" {
			mimeType = defaultMimeType
		}
		staged, err := h.stager.Stage(part, part.FileName(), mimeType, userID)
		_ = part.Close()
		return staged, err
	}
}

// ListFiles — GET /api/v1/files.
func (h *APIHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	var (
		params service.ListParams
		page   *int
		limit  *int
	)
	query := r.URL.Query()
	bindings := []struct {
		name string
		dest any
	}{
		{"fileId", &params.FileID},
		{"filename", &params.Filename},
		{"mimeType", &params.MimeType},
		{"status", &params.Status},
		{"date", &params.Date},
		{"page", &page},
		{"limit", &limit},
	}
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			apierrors.ValidationError(w, "Некорректный параметр "+b.name+": "+err.Error())
			return
		}
	}
	if params.FileID != nil {
		if _, err := uuid.Parse(*params.FileID); err != nil {
			apierrors.ValidationError(w, "Некорректный параметр fileId: ожидается UUID")
			return
		}
	}
	if page != nil {
		params.Page = *page
	}
	if limit != nil {
		params.Limit = *limit
	}

	res, err := h.catalog.List(r.Context(), middleware.SubjectFromContext(r.Context()), params)
	if err != nil {
		h.writeServiceError(w, r, err, "list")
		return
	}

	resp := fileListResponse{
		Items:      make([]fileResponse, 0, len(res.Items)),
		Total:      res.Total,
		Page:       res.Page,
		Limit:      res.Limit,
		TotalPages: res.TotalPages,
	}
	for _, item := range res.Items {
		resp.Items = append(resp.Items, toFileResponse(item))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetFile — GET /api/v1/files/{file_id}.
func (h *APIHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := bindFileID(w, r)
	if !ok {
		return
	}

	record, err := h.catalog.GetByID(r.Context(), fileID, middleware.SubjectFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, "get")
		return
	}
	writeJSON(w, http.StatusOK, toFileResponse(record))
}

// DeleteFile — DELETE /api/v1/files/{file_id}.
func (h *APIHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	fileID, ok := bindFileID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.Delete(r.Context(), fileID, middleware.SubjectFromContext(r.Context())); err != nil {
		h.writeServiceError(w, r, err, "delete")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// bindFileID разбирает path-параметр file_id как UUID; при ошибке пишет 400.
func bindFileID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var fileID uuid.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "file_id", chi.URLParam(r, "file_id"), &fileID,
		runtime.BindStyledParameterOptions{
			ParamLocation: runtime.ParamLocationPath,
			Explode:       false,
			Required:      true,
		})
	if err != nil {
		apierrors.ValidationError(w, "Некорректный параметр file_id: ожидается UUID")
		return "", false
	}
	return fileID.String(), true
}
