// verdict.go — разбор вывода сканера в вердикт.
//
// Грамматика строки с заражением:
//
//	<путь>: <сигнатура> FOUND
//
// Сигнатура — текст между последним ':' и завершающим FOUND, без пробелов по краям.
// Если строка оканчивается на FOUND, но разделителя нет — файл заражён, имя не задано.
package scanner

import (
	"fmt"
	"strings"

	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
)

// Значения fallback-вердикта, когда сканер недоступен.
const (
	FallbackLog     = "ClamAV not available - mock scan performed (file marked as clean)"
	FallbackVersion = "Mock Scanner v1.0"
	// NoOutputLog — лог, если сканер ничего не вывел.
	NoOutputLog = "No scan output"
)

const foundMarker = "FOUND"

// Verdict — результат сканирования одного файла.
type Verdict struct {
	Status model.ScanStatus
	// VirusName — заполняется только для infected и только если удалось извлечь
	VirusName *string
	Log       string
	Version   string
}

// FallbackVerdict возвращает детерминированный clean-вердикт для недоступного сканера.
func FallbackVerdict() Verdict {
	return Verdict{
		Status:  model.ScanStatusClean,
		Log:     FallbackLog,
		Version: FallbackVersion,
	}
}

// ParseThreat ищет первую строку с маркером FOUND.
// Возвращает имя сигнатуры ("" если не извлекается) и признак заражения.
func ParseThreat(output string) (name string, found bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasSuffix(line, foundMarker) {
			continue
		}
		body := strings.TrimSuffix(line, foundMarker)
		idx := strings.LastIndex(body, ":")
		if idx < 0 {
			return "", true
		}
		return strings.TrimSpace(body[idx+1:]), true
	}
	return "", false
}

// classify превращает итог процесса в вердикт.
// Вызывается только для процесса, который запустился (res.Exited()).
func classify(res Result) Verdict {
	out := res.Stdout
	if out == "" {
		out = res.Stderr
	}
	if out == "" {
		out = NoOutputLog
	}

	name, found := ParseThreat(res.Stdout + "\n" + res.Stderr)
	if found {
		v := Verdict{Status: model.ScanStatusInfected, Log: out}
		if name != "" {
			v.VirusName = &name
		}
		return v
	}

	if res.Err == nil {
		return Verdict{Status: model.ScanStatusClean, Log: out}
	}

	return Verdict{
		Status: model.ScanStatusError,
		Log:    fmt.Sprintf("%s\n%s", res.Err.Error(), out),
	}
}
