// janitor.go — периодическая очистка staging-директории от забытых файлов
// (остаются, если процесс упал между приёмом и удалением).
// Расписание — cron-выражение robfig/cron (например, "@every 10m").
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"

	"github.com/bigkaa/goartstore/scan-module/internal/storage/staging"
)

// Prometheus-метрики janitor.
var (
	stagingSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sm_staging_swept_total",
		Help: "Количество забытых файлов, удалённых из staging.",
	})
	stagingSweepRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sm_staging_sweep_runs_total",
		Help: "Количество запусков очистки staging по результату.",
	}, []string{"result"})
)

// Sweeper — очистка файлов старше maxAge.
type Sweeper interface {
	Sweep(maxAge time.Duration, now time.Time) (staging.SweepResult, error)
}

// StagingJanitor — cron-задача очистки staging.
type StagingJanitor struct {
	cron   *cron.Cron
	area   Sweeper
	maxAge time.Duration
	logger *slog.Logger
}

// NewStagingJanitor создаёт janitor с расписанием schedule.
// Перекрывающиеся запуски пропускаются, паника в задаче не роняет процесс.
func NewStagingJanitor(area Sweeper, schedule string, maxAge time.Duration, logger *slog.Logger) (*StagingJanitor, error) {
	logger = logger.With(slog.String("component", "staging_janitor"))
	cl := cronLogger{logger: logger}

	j := &StagingJanitor{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		area:   area,
		maxAge: maxAge,
		logger: logger,
	}

	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return nil, fmt.Errorf("некорректное расписание %q: %w", schedule, err)
	}
	return j, nil
}

// Start запускает планировщик в фоне.
func (j *StagingJanitor) Start() {
	j.cron.Start()
	j.logger.Info("Очистка staging запущена", slog.Duration("max_age", j.maxAge))
}

// Stop останавливает планировщик и ждёт завершения текущего запуска
// или отмены ctx.
func (j *StagingJanitor) Stop(ctx context.Context) {
	select {
	case <-j.cron.Stop().Done():
	case <-ctx.Done():
	}
	j.logger.Info("Очистка staging остановлена")
}

// RunOnce выполняет один проход очистки.
func (j *StagingJanitor) RunOnce() {
	res, err := j.area.Sweep(j.maxAge, time.Now())
	if err != nil {
		stagingSweepRunsTotal.WithLabelValues("error").Inc()
		j.logger.Error("Ошибка очистки staging", slog.String("error", err.Error()))
		return
	}

	stagingSweepRunsTotal.WithLabelValues("ok").Inc()
	stagingSweptTotal.Add(float64(res.Removed))
	if res.Removed > 0 || res.Failed > 0 {
		j.logger.Info("Очистка staging выполнена",
			slog.Int("removed", res.Removed),
			slog.Int("failed", res.Failed),
		)
	}
}

// cronLogger — адаптер slog к cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, slog.String("error", err.Error()))...)
}
