package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
)

// ScanRepository — интерфейс доступа к таблице scans.
type ScanRepository interface {
	// Create сохраняет результат сканирования и заполняет ScannedAt.
	// Повторная запись для того же файла — ErrConflict (история не ведётся).
	// Несуществующий файл — ErrNotFound.
	Create(ctx context.Context, rec *model.ScanRecord) error
}

// scanRepo — реализация ScanRepository через pgx.
type scanRepo struct {
	db DBTX
}

// NewScanRepository создаёт репозиторий результатов сканирования.
func NewScanRepository(db DBTX) ScanRepository {
	return &scanRepo{db: db}
}

// Create вставляет запись сканирования; scanned_at ставится БД в момент записи.
func (r *scanRepo) Create(ctx context.Context, rec *model.ScanRecord) error {
	if !rec.Status.Valid() {
		return fmt.Errorf("недопустимый статус сканирования %q", rec.Status)
	}
	// virus_name допустим только для infected
	virusName := rec.VirusName
	if rec.Status != model.ScanStatusInfected {
		virusName = nil
	}

	query := `
		INSERT INTO scans (file_id, status, virus_name, scan_log, scan_version)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING scanned_at`

	err := r.db.QueryRow(ctx, query,
		rec.FileID, string(rec.Status), virusName, rec.Log, rec.Version,
	).Scan(&rec.ScannedAt)
	if err != nil {
		switch pgErrorCode(err) {
		case pgUniqueViolation:
			return ErrConflict
		case pgForeignKeyViolation:
			return ErrNotFound
		}
		return fmt.Errorf("ошибка сохранения результата сканирования: %w", err)
	}
	rec.VirusName = virusName
	return nil
}
