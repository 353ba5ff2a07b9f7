package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/bigkaa/goartstore/scan-module/internal/domain/model"
	"github.com/bigkaa/goartstore/scan-module/internal/repository"
	"github.com/bigkaa/goartstore/scan-module/internal/scanner"
)

// mockFileRepo — мок FileRepository на функциональных полях.
type mockFileRepo struct {
	createFn      func(ctx context.Context, rec *model.FileRecord) error
	getByIDFn     func(ctx context.Context, fileID, userID string) (*model.FileWithScan, error)
	listFn        func(ctx context.Context, filter repository.ListFilter) ([]*model.FileWithScan, int, error)
	deleteFn      func(ctx context.Context, fileID, userID string) error
	statsFn       func(ctx context.Context, userID string) (*model.ScanStats, error)
	infectedIDsFn func(ctx context.Context, userID string) ([]string, error)

	createCalls int
	getCalls    int
}

func (m *mockFileRepo) Create(ctx context.Context, rec *model.FileRecord) error {
	m.createCalls++
	if m.createFn != nil {
		return m.createFn(ctx, rec)
	}
	if rec.ID == "" {
		rec.ID = "file-1"
	}
	return nil
}

func (m *mockFileRepo) GetByID(ctx context.Context, fileID, userID string) (*model.FileWithScan, error) {
	m.getCalls++
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, fileID, userID)
	}
	return nil, repository.ErrNotFound
}

func (m *mockFileRepo) List(ctx context.Context, filter repository.ListFilter) ([]*model.FileWithScan, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockFileRepo) Delete(ctx context.Context, fileID, userID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, fileID, userID)
	}
	return nil
}

func (m *mockFileRepo) Stats(ctx context.Context, userID string) (*model.ScanStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx, userID)
	}
	return &model.ScanStats{}, nil
}

func (m *mockFileRepo) InfectedIDs(ctx context.Context, userID string) ([]string, error) {
	if m.infectedIDsFn != nil {
		return m.infectedIDsFn(ctx, userID)
	}
	return nil, nil
}

// mockScanRepo — мок ScanRepository, запоминает сохранённые вердикты.
type mockScanRepo struct {
	createFn func(ctx context.Context, rec *model.ScanRecord) error
	saved    []*model.ScanRecord
}

func (m *mockScanRepo) Create(ctx context.Context, rec *model.ScanRecord) error {
	if m.createFn != nil {
		if err := m.createFn(ctx, rec); err != nil {
			return err
		}
	}
	m.saved = append(m.saved, rec)
	return nil
}

// fakeScanner — мок scanner.Scanner.
type fakeScanner struct {
	probeFn func(ctx context.Context) (string, error)
	scanFn  func(ctx context.Context, path string) (scanner.Verdict, error)

	scanCalls int
}

func (f *fakeScanner) Probe(ctx context.Context) (string, error) {
	if f.probeFn != nil {
		return f.probeFn(ctx)
	}
	return "", scanner.ErrUnavailable
}

func (f *fakeScanner) Scan(ctx context.Context, path string) (scanner.Verdict, error) {
	f.scanCalls++
	if f.scanFn != nil {
		return f.scanFn(ctx, path)
	}
	return scanner.Verdict{Status: model.ScanStatusClean}, nil
}

// fakeRemover — мок FileRemover.
type fakeRemover struct {
	err     error
	removed []string
}

func (f *fakeRemover) Remove(filename string) error {
	f.removed = append(f.removed, filename)
	return f.err
}

// runnerFunc — адаптер функции к scanner.CommandRunner.
type runnerFunc func(ctx context.Context, name string, args ...string) scanner.Result

func (f runnerFunc) Run(ctx context.Context, name string, args ...string) scanner.Result {
	return f(ctx, name, args...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
