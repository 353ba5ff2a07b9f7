// Пакет model — доменные модели Scan Module.
// FileRecord — маппинг таблицы files, ScanRecord — маппинг таблицы scans.
package model

import "time"

// StorageKeyLocal — значение storage_key для файлов, хранящихся локально.
// Зарезервировано под будущие удалённые хранилища.
const StorageKeyLocal = "local"

// ScanStatus — вердикт сканирования.
type ScanStatus string

const (
	// ScanStatusClean — угроз не найдено (или сканер недоступен, см. fallback).
	ScanStatusClean ScanStatus = "clean"
	// ScanStatusInfected — сканер сообщил о найденной сигнатуре.
	ScanStatusInfected ScanStatus = "infected"
	// ScanStatusError — сканер завершился ошибкой без признака заражения.
	ScanStatusError ScanStatus = "error"
)

// Valid сообщает, является ли статус одним из терминальных вердиктов.
func (s ScanStatus) Valid() bool {
	switch s {
	case ScanStatusClean, ScanStatusInfected, ScanStatusError:
		return true
	}
	return false
}

// FileRecord — запись таблицы files.
type FileRecord struct {
	// ID — UUID файла (генерируется при вставке)
	ID string
	// Filename — имя файла в staging-директории
	Filename string
	// OriginalName — имя файла, переданное клиентом
	OriginalName string
	// StorageKey — ключ хранилища (сейчас всегда "local")
	StorageKey string
	// Size — размер в байтах
	Size int64
	// UserID — владелец (sub из JWT)
	UserID string
	// MimeType — MIME-тип из multipart-заголовка
	MimeType string
	// Checksum — SHA-256 содержимого
	Checksum string
	// UploadedAt — время загрузки
	UploadedAt time.Time
}

// ScanRecord — запись таблицы scans. Не более одной на файл.
type ScanRecord struct {
	FileID string
	Status ScanStatus
	// VirusName — имя сигнатуры; заполнено только при Status == infected
	VirusName *string
	// Log — сырой вывод сканера (или пояснение fallback)
	Log string
	// Version — версия сканера
	Version   string
	ScannedAt time.Time
}

// FileWithScan — файл с присоединённым (LEFT JOIN) результатом сканирования.
// Scan == nil означает, что файл ещё не просканирован.
type FileWithScan struct {
	FileRecord
	Scan *ScanRecord
}

// ScanStatusOrEmpty возвращает статус сканирования или "" для непросканированного файла.
func (f *FileWithScan) ScanStatusOrEmpty() ScanStatus {
	if f.Scan == nil {
		return ""
	}
	return f.Scan.Status
}

// ScanStats — агрегированная статистика по файлам пользователя.
// Инвариант: Total >= Clean + Infected.
type ScanStats struct {
	Total    int64
	Clean    int64
	Infected int64
}

// StagedFile — файл, принятый от клиента и записанный во временную директорию.
type StagedFile struct {
	// Filename — сгенерированное уникальное имя в staging-директории
	Filename string
	// OriginalName — имя файла от клиента
	OriginalName string
	// Path — абсолютный путь на локальной ФС
	Path     string
	Size     int64
	MimeType string
	Checksum string
}
