// Пакет staging — временная директория для принятых загрузок.
// Файл пишется потоково с подсчётом SHA-256, живёт до окончания
// сканирования и удаляется оркестратором (или janitor'ом, если процесс упал).
package staging

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
)

// tmpSuffix — суффикс недописанных файлов.
const tmpSuffix = ".tmp"

// ErrInvalidName — имя файла выходит за пределы staging-директории.
var ErrInvalidName = errors.New("недопустимое имя файла")

// Area — staging-директория на локальном диске.
type Area struct {
	dir string
}

// SweepResult — итог очистки забытых файлов.
type SweepResult struct {
	// Removed — количество удалённых файлов
	Removed int
	// Failed — количество файлов, которые не удалось удалить
	Failed int
}

// New создаёт Area. Директория создаётся при отсутствии.
func New(dir string) (*Area, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("абсолютный путь staging %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать staging-директорию %s: %w", abs, err)
	}
	return &Area{dir: abs}, nil
}

// Dir возвращает абсолютный путь директории.
func (a *Area) Dir() string {
	return a.dir
}

// Stage записывает данные из reader во временную директорию.
// Формат имени: {name}_{user}_{timestamp}_{uuid8}{ext}.
//
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При ошибке temp файл удаляется.
func (a *Area) Stage(reader io.Reader, originalName, mimeType, userID string) (*model.StagedFile, error) {
	name := generateStagedName(originalName, userID)
	fullPath := filepath.Join(a.dir, name)
	tmpPath := fullPath + tmpSuffix

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	hasher := sha256.New()
	size, err := io.Copy(f, io.TeeReader(reader, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &model.StagedFile{
		Filename:     name,
		OriginalName: originalName,
		Path:         fullPath,
		Size:         size,
		MimeType:     mimeType,
		Checksum:     hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// Path возвращает абсолютный путь файла по имени.
func (a *Area) Path(filename string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return filepath.Join(a.dir, filename), nil
}

// Remove удаляет файл. Отсутствие файла ошибкой не считается.
func (a *Area) Remove(filename string) error {
	path, err := a.Path(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла %s: %w", filename, err)
	}
	return nil
}

// Exists проверяет наличие файла.
func (a *Area) Exists(filename string) bool {
	path, err := a.Path(filename)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Sweep удаляет обычные файлы, изменённые раньше now-maxAge.
// Такие файлы остаются после аварийного завершения между приёмом и сканированием.
func (a *Area) Sweep(maxAge time.Duration, now time.Time) (SweepResult, error) {
	var res SweepResult

	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return res, fmt.Errorf("ошибка чтения staging-директории: %w", err)
	}

	cutoff := now.Add(-maxAge)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// файл удалён параллельно
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			res.Failed++
			continue
		}
		res.Removed++
	}
	return res, nil
}

// generateStagedName генерирует уникальное имя файла.
// Пример: report_u1_20260221150405_a1b2c3d4.pdf
func generateStagedName(originalName, userID string) string {
	originalName = filepath.Base(strings.ReplaceAll(originalName, `\`, "/"))
	ext := sanitizeExt(filepath.Ext(originalName))
	name := strings.TrimSuffix(originalName, filepath.Ext(originalName))

	name = sanitize(name)
	user := sanitize(userID)

	if len([]rune(name)) > 50 {
		name = string([]rune(name)[:50])
	}
	if len([]rune(user)) > 20 {
		user = string([]rune(user)[:20])
	}

	ts := time.Now().UTC().Format("20060102150405")
	uid := uuid.New().String()[:8]

	return fmt.Sprintf("%s_%s_%s_%s%s", name, user, ts, uid, ext)
}

// sanitizeExt оставляет в расширении только безопасные символы.
func sanitizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	clean := sanitize(strings.TrimPrefix(ext, "."))
	if clean == "file" && strings.TrimPrefix(ext, ".") != "file" {
		return ""
	}
	if len(clean) > 16 {
		clean = clean[:16]
	}
	return "." + clean
}

// sanitize убирает небезопасные символы из строки для использования в имени файла.
// Оставляет только буквы, цифры, дефис и подчёркивание.
func sanitize(s string) string {
	var result strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' ||
			(r >= 0x0400 && r <= 0x04FF) { // Кириллица
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return "file"
	}
	return result.String()
}
