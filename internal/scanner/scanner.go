// Пакет scanner — вызов внешнего антивирусного сканера (clamscan)
// и преобразование его вывода в вердикт.
// Трансляция путей изолирована здесь: вызывающий код передаёт OS-пути.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
)

// ErrUnavailable — сканер не удалось запустить. Не ошибка для клиента:
// оркестратор переключается на FallbackVerdict.
var ErrUnavailable = errors.New("сканер недоступен")

// Scanner — контракт сканера.
type Scanner interface {
	// Probe проверяет доступность и возвращает строку версии.
	Probe(ctx context.Context) (string, error)
	// Scan сканирует файл по OS-пути. ErrUnavailable — процесс не запустился.
	Scan(ctx context.Context, path string) (Verdict, error)
}

// Options — параметры ClamAV.
type Options struct {
	// Binary — исполняемый файл (clamscan)
	Binary string
	// Wrapper — команда-обёртка (например, wsl); пустая — запуск Binary напрямую
	Wrapper string
	// ProbeTimeout — таймаут Probe
	ProbeTimeout time.Duration
}

// ClamAV — Scanner поверх CLI clamscan.
type ClamAV struct {
	runner CommandRunner
	paths  PathMapper
	opts   Options
	logger *slog.Logger
}

// NewClamAV создаёт сканер.
func NewClamAV(runner CommandRunner, paths PathMapper, opts Options, logger *slog.Logger) *ClamAV {
	if opts.Binary == "" {
		opts.Binary = "clamscan"
	}
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	return &ClamAV{
		runner: runner,
		paths:  paths,
		opts:   opts,
		logger: logger.With(slog.String("component", "scanner")),
	}
}

// Probe запускает `clamscan -V`. Ошибка или пустой вывод — ErrUnavailable.
func (c *ClamAV) Probe(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ProbeTimeout)
	defer cancel()

	name, args := c.command("-V")
	res := c.runner.Run(ctx, name, args...)
	version := firstLine(res.Stdout)
	if res.Err != nil || version == "" {
		c.logger.Debug("Проверка сканера не пройдена",
			slog.Int("exit_code", res.ExitCode),
			slog.String("stderr", strings.TrimSpace(res.Stderr)),
		)
		if res.Err != nil {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, res.Err)
		}
		return "", ErrUnavailable
	}
	return version, nil
}

// Scan запускает `clamscan --no-summary <path>`.
// Отмена ctx не прерывает уже начатое сканирование.
func (c *ClamAV) Scan(ctx context.Context, path string) (Verdict, error) {
	mapped, err := c.paths.Map(path)
	if err != nil {
		return Verdict{
			Status: model.ScanStatusError,
			Log:    fmt.Sprintf("%s\n%s", err.Error(), NoOutputLog),
		}, nil
	}

	name, args := c.command("--no-summary", mapped)
	start := time.Now()
	res := c.runner.Run(context.WithoutCancel(ctx), name, args...)
	if !res.Exited() {
		return Verdict{}, fmt.Errorf("%w: %w", ErrUnavailable, res.Err)
	}

	v := classify(res)
	c.logger.Debug("Сканирование завершено",
		slog.String("path", mapped),
		slog.Int("exit_code", res.ExitCode),
		slog.String("status", string(v.Status)),
		slog.Duration("duration", time.Since(start)),
	)
	return v, nil
}

// command собирает имя и аргументы с учётом обёртки.
func (c *ClamAV) command(args ...string) (string, []string) {
	if c.opts.Wrapper == "" {
		return c.opts.Binary, args
	}
	return c.opts.Wrapper, append([]string{c.opts.Binary}, args...)
}

// firstLine возвращает первую непустую строку без пробелов по краям.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
