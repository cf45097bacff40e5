package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "archive.db")}, nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close(nil) })
	if err := db.HealthCheck(ctx, time.Second, nil); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	return db
}

func newTestArchive(t *testing.T) ArchiveRepository {
	t.Helper()
	repo := NewArchiveRepository(openTestDB(t), nil)
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// A second run must be a no-op.
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}
	return repo
}

func archived(id string, status constants.JobStatus, finished time.Time) entity.ArchivedJob {
	return entity.ArchivedJob{
		ID:         id,
		Filename:   id + ".pdf",
		Status:     status,
		CreatedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
}

func TestArchiveSaveAndList(t *testing.T) {
	repo := newTestArchive(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	done := archived("a", constants.JobStatusDone, base)
	done.TotalPages, done.ProcessedPages, done.RelevantPages = 30, 30, 4
	done.RecordCount, done.HasSuspectValues, done.DurationMS = 12, true, 4200
	failed := archived("b", constants.JobStatusError, base.Add(time.Hour))
	failed.ErrorMessage = "Nenhuma página relevante encontrada"

	for _, a := range []entity.ArchivedJob{done, failed} {
		if err := repo.Save(ctx, a); err != nil {
			t.Fatalf("Save(%s) error = %v", a.ID, err)
		}
	}

	all, err := repo.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if diff := cmp.Diff([]entity.ArchivedJob{failed, done}, all); diff != "" {
		t.Fatalf("List() mismatch (-want +got):\n%s", diff)
	}

	st := constants.JobStatusDone
	only, err := repo.List(ctx, &st, 10)
	if err != nil {
		t.Fatalf("List(DONE) error = %v", err)
	}
	if len(only) != 1 || only[0].ID != "a" {
		t.Fatalf("List(DONE) = %+v", only)
	}

	limited, err := repo.List(ctx, nil, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("List(limit 1) = %d rows, %v", len(limited), err)
	}
}

func TestArchiveSaveUpserts(t *testing.T) {
	repo := newTestArchive(t)
	ctx := context.Background()
	a := archived("x", constants.JobStatusCancelled, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	a.Status = constants.JobStatusDone
	a.RecordCount = 3
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("Save() again error = %v", err)
	}
	got, err := repo.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].Status != constants.JobStatusDone || got[0].RecordCount != 3 {
		t.Fatalf("List() = %+v", got)
	}
}

func TestArchiveHook(t *testing.T) {
	repo := newTestArchive(t)
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	completed := created.Add(90 * time.Second)
	job := entity.Job{
		ID:             "job-1",
		Filename:       "extrato.pdf",
		Status:         constants.JobStatusDone,
		CreatedAt:      created,
		CompletedAt:    &completed,
		TotalPages:     12,
		ProcessedPages: 12,
	}
	res := &entity.JobResult{RelevantPages: 2, RecordCount: 5, DurationMS: 900}
	res.Aggregate.HasSuspectValues = true
	res.Aggregate.Totals = []entity.FieldTotal{entity.ReportedTotal(constants.FieldEntrada, decimal.NewFromInt(1), 1)}

	ArchiveHook(repo, time.Second, nil)(job, res)

	got, err := repo.List(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []entity.ArchivedJob{{
		ID:               "job-1",
		Filename:         "extrato.pdf",
		Status:           constants.JobStatusDone,
		CreatedAt:        created,
		FinishedAt:       completed,
		TotalPages:       12,
		ProcessedPages:   12,
		RelevantPages:    2,
		RecordCount:      5,
		HasSuspectValues: true,
		DurationMS:       900,
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("archived row mismatch (-want +got):\n%s", diff)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), Config{Driver: "mysql"}, nil); err == nil {
		t.Fatal("Open(mysql) error = nil")
	}
}

func TestArchiveMigrateCreatesIndex(t *testing.T) {
	db := openTestDB(t)
	repo := NewArchiveRepository(db, nil)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := repo.Migrate(ctx); err != nil {
			t.Fatalf("Migrate() run %d error = %v", i+1, err)
		}
	}
	var n int
	row := db.Driver.DB().QueryRowContext(ctx,
		`SELECT count(*) FROM sqlite_master WHERE type = 'index' AND name = ?`, archiveIndex)
	if err := row.Scan(&n); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if n != 1 {
		t.Fatalf("index %s count = %d, want 1", archiveIndex, n)
	}
	// Defaults cover columns a minimal row leaves out.
	if _, err := db.Driver.DB().ExecContext(ctx,
		`INSERT INTO job_archive (id, filename, status, created_at, finished_at) VALUES ('x', 'x.pdf', 'DONE', 1, 2)`); err != nil {
		t.Fatalf("minimal insert: %v", err)
	}
	got, err := repo.List(ctx, nil, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].RecordCount != 0 || got[0].HasSuspectValues || got[0].ErrorMessage != "" {
		t.Fatalf("List() = %+v", got)
	}
}
