package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
)

// Специальные значения фильтра по статусу сканирования.
const (
	// StatusFilterAll — фильтр не применяется.
	StatusFilterAll = "all"
	// StatusFilterUnscanned — файлы без записи в scans.
	StatusFilterUnscanned = "unscanned"
)

// fileWithScanColumns — столбцы для SELECT из files f LEFT JOIN scans s.
const fileWithScanColumns = `f.id, f.filename, f.original_name, f.storage_key, f.file_size,
	f.user_id, f.mime_type, f.checksum, f.uploaded_at,
	s.status, s.virus_name, s.scan_log, s.scan_version, s.scanned_at`

// fileWithScanFrom — источник данных для листинга и точечного чтения.
const fileWithScanFrom = `files f LEFT JOIN scans s ON s.file_id = f.id`

// ListFilter — параметры листинга файлов.
// UserID обязателен; остальные поля — указатели, nil = фильтр не применяется.
type ListFilter struct {
	// UserID — владелец; листинг всегда ограничен им
	UserID string
	// FileID — точное совпадение идентификатора
	FileID *string
	// Filename — подстрока имени файла (регистр не важен)
	Filename *string
	// MimeType — подстрока MIME-типа (регистр не важен)
	MimeType *string
	// Status — clean, infected, error, unscanned или all
	Status *string
	// UploadedOn — календарная дата загрузки
	UploadedOn *time.Time
	// Limit — размер страницы
	Limit int
	// Offset — смещение
	Offset int
}

// FileRepository — интерфейс доступа к таблице files.
type FileRepository interface {
	// Create вставляет запись. Если ID пуст — генерирует UUID.
	// Заполняет ID и UploadedAt.
	Create(ctx context.Context, rec *model.FileRecord) error
	// GetByID возвращает файл пользователя вместе с результатом сканирования.
	GetByID(ctx context.Context, fileID, userID string) (*model.FileWithScan, error)
	// List возвращает страницу файлов и общее количество по фильтру (без пагинации).
	List(ctx context.Context, filter ListFilter) ([]*model.FileWithScan, int, error)
	// Delete удаляет запись сканирования и запись файла в одной транзакции.
	Delete(ctx context.Context, fileID, userID string) error
	// Stats возвращает агрегированную статистику пользователя.
	Stats(ctx context.Context, userID string) (*model.ScanStats, error)
	// InfectedIDs возвращает идентификаторы заражённых файлов пользователя.
	InfectedIDs(ctx context.Context, userID string) ([]string, error)
}

// fileRepo — реализация FileRepository через pgx.
type fileRepo struct {
	db DBTX
}

// NewFileRepository создаёт репозиторий файлов.
func NewFileRepository(db DBTX) FileRepository {
	return &fileRepo{db: db}
}

// Create вставляет запись о файле.
func (r *fileRepo) Create(ctx context.Context, rec *model.FileRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StorageKey == "" {
		rec.StorageKey = model.StorageKeyLocal
	}

	query := `
		INSERT INTO files (id, filename, original_name, storage_key, file_size,
			user_id, mime_type, checksum)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING uploaded_at`

	err := r.db.QueryRow(ctx, query,
		rec.ID, rec.Filename, rec.OriginalName, rec.StorageKey, rec.Size,
		rec.UserID, rec.MimeType, rec.Checksum,
	).Scan(&rec.UploadedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("ошибка вставки файла: %w", err)
	}
	return nil
}

// GetByID возвращает файл по UUID с учётом владельца или ErrNotFound.
// Чужой файл неотличим от несуществующего.
func (r *fileRepo) GetByID(ctx context.Context, fileID, userID string) (*model.FileWithScan, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE f.id = $1 AND f.user_id = $2`,
		fileWithScanColumns, fileWithScanFrom)

	f, err := scanFileWithScan(r.db.QueryRow(ctx, query, fileID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || pgErrorCode(err) == pgInvalidTextRepr {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения файла: %w", err)
	}
	return f, nil
}

// List выполняет листинг с фильтрами и пагинацией, новые файлы первыми.
// Возвращает (страница, общее количество по фильтру, ошибка).
func (r *fileRepo) List(ctx context.Context, filter ListFilter) ([]*model.FileWithScan, int, error) {
	p := buildListPredicates(filter)
	where := p.where()
	countArgs := p.snapshot()

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM %s %s ORDER BY f.uploaded_at DESC, f.id LIMIT %s OFFSET %s`,
		fileWithScanColumns, fileWithScanFrom, where, p.bind(filter.Limit), p.bind(filter.Offset),
	)

	rows, err := r.db.Query(ctx, dataQuery, p.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка листинга файлов: %w", err)
	}
	defer rows.Close()

	result := make([]*model.FileWithScan, 0, filter.Limit)
	for rows.Next() {
		f, err := scanFileWithScan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования файла: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s %s`, fileWithScanFrom, where)

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта файлов: %w", err)
	}

	return result, total, nil
}

// Delete удаляет запись сканирования и файл пользователя атомарно.
// Если файла нет (или он чужой) — ErrNotFound, ничего не удаляется.
func (r *fileRepo) Delete(ctx context.Context, fileID, userID string) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM scans
			WHERE file_id IN (SELECT id FROM files WHERE id = $1 AND user_id = $2)`,
			fileID, userID); err != nil {
			return fmt.Errorf("ошибка удаления записи сканирования: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM files WHERE id = $1 AND user_id = $2`, fileID, userID)
		if err != nil {
			return fmt.Errorf("ошибка удаления файла: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
	if pgErrorCode(err) == pgInvalidTextRepr {
		return ErrNotFound
	}
	return err
}

// Stats считает файлы пользователя: всего, clean, infected.
// Файлы без записи в scans учитываются только в total.
func (r *fileRepo) Stats(ctx context.Context, userID string) (*model.ScanStats, error) {
	query := `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE s.status = 'clean'),
			COUNT(*) FILTER (WHERE s.status = 'infected')
		FROM files f LEFT JOIN scans s ON s.file_id = f.id
		WHERE f.user_id = $1`

	stats := &model.ScanStats{}
	if err := r.db.QueryRow(ctx, query, userID).Scan(&stats.Total, &stats.Clean, &stats.Infected); err != nil {
		return nil, fmt.Errorf("ошибка подсчёта статистики: %w", err)
	}
	return stats, nil
}

// InfectedIDs возвращает UUID заражённых файлов пользователя, новые первыми.
func (r *fileRepo) InfectedIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT f.id
		FROM files f JOIN scans s ON s.file_id = f.id
		WHERE f.user_id = $1 AND s.status = 'infected'
		ORDER BY f.uploaded_at DESC, f.id`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения заражённых файлов: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения заражённых файлов: %w", err)
	}
	return ids, nil
}

// buildListPredicates строит условия листинга.
// Владелец добавляется всегда и первым.
func buildListPredicates(filter ListFilter) *predicates {
	p := &predicates{}

	p.add("f.user_id = %s", filter.UserID)

	if filter.FileID != nil && *filter.FileID != "" {
		p.add("f.id = %s", *filter.FileID)
	}

	if filter.Filename != nil && *filter.Filename != "" {
		p.add("(f.original_name ILIKE %[1]s OR f.filename ILIKE %[1]s)", "%"+escapeLike(*filter.Filename)+"%")
	}

	if filter.MimeType != nil && *filter.MimeType != "" {
		p.add("f.mime_type ILIKE %s", "%"+escapeLike(*filter.MimeType)+"%")
	}

	if filter.Status != nil {
		switch *filter.Status {
		case "", StatusFilterAll:
		case StatusFilterUnscanned:
			p.addRaw("s.status IS NULL")
		default:
			p.add("s.status = %s", *filter.Status)
		}
	}

	if filter.UploadedOn != nil {
		p.add("f.uploaded_at::date = %s", *filter.UploadedOn)
	}

	return p
}

// escapeLike экранирует спецсимволы LIKE, чтобы подстрока искалась буквально.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\\' || r == '%' || r == '_' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}

// rowScanner — общий контракт pgx.Row и pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanFileWithScan читает строку files LEFT JOIN scans.
func scanFileWithScan(row rowScanner) (*model.FileWithScan, error) {
	f := &model.FileWithScan{}
	var (
		status    *string
		virusName *string
		scanLog   *string
		version   *string
		scannedAt *time.Time
	)
	if err := row.Scan(
		&f.ID, &f.Filename, &f.OriginalName, &f.StorageKey, &f.Size,
		&f.UserID, &f.MimeType, &f.Checksum, &f.UploadedAt,
		&status, &virusName, &scanLog, &version, &scannedAt,
	); err != nil {
		return nil, err
	}

	if status != nil {
		f.Scan = &model.ScanRecord{
			FileID:    f.ID,
			Status:    model.ScanStatus(*status),
			VirusName: virusName,
			Log:       derefString(scanLog),
			Version:   derefString(version),
		}
		if scannedAt != nil {
			f.Scan.ScannedAt = *scannedAt
		}
	}
	return f, nil
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
