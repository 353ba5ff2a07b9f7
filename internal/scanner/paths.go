// paths.go — трансляция локальных путей в пространство имён сканера.
package scanner

import (
	"fmt"
	"path/filepath"
	"strings"
)

// PathMapper переводит OS-путь в путь, понятный окружению сканера.
type PathMapper interface {
	Map(path string) (string, error)
}

// NativePaths — сканер работает в той же ФС, путь не меняется.
type NativePaths struct{}

// Map возвращает абсолютную форму пути.
func (NativePaths) Map(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("абсолютный путь %q: %w", path, err)
	}
	return abs, nil
}

// WSLPaths — сканер запущен в WSL: C:\dir\file → /mnt/c/dir/file.
type WSLPaths struct{}

// Map транслирует путь с буквой диска в точку монтирования WSL.
// Пути без буквы диска (уже POSIX) возвращаются с заменой \ на /.
func (WSLPaths) Map(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("пустой путь")
	}

	p := strings.ReplaceAll(path, `\`, "/")
	if len(p) >= 2 && p[1] == ':' && isASCIILetter(p[0]) {
		drive := strings.ToLower(p[:1])
		rest := strings.TrimPrefix(p[2:], "/")
		return "/mnt/" + drive + "/" + rest, nil
	}
	if strings.HasPrefix(p, "/") {
		return p, nil
	}
	return "", fmt.Errorf("путь %q не абсолютный", path)
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
