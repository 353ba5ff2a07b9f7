// runner.go — запуск внешнего процесса с захватом вывода.
// Вызов синхронный: возвращает управление после завершения процесса.
package scanner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result — итог запуска процесса.
type Result struct {
	// ExitCode — код завершения; -1, если процесс не удалось запустить
	ExitCode int
	Stdout   string
	Stderr   string
	// Err — ошибка запуска или ненулевого завершения (nil при коде 0)
	Err error
}

// Exited сообщает, что процесс был запущен и завершился сам.
// false — бинарник не найден, нет прав, окружение недоступно.
func (r Result) Exited() bool {
	return r.ExitCode >= 0
}

// CommandRunner — абстракция запуска команд (подменяется в тестах).
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) Result
}

// ExecRunner — CommandRunner поверх os/exec.
type ExecRunner struct{}

// Run запускает команду и ждёт её завершения.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) Result {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
		Err:    err,
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		res.ExitCode = 0
	case errors.As(err, &exitErr) && exitErr.Exited():
		res.ExitCode = exitErr.ExitCode()
	default:
		// не запустился или убит сигналом (в т.ч. по таймауту ctx)
		res.ExitCode = -1
	}
	return res
}
