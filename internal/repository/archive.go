package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/convenio-extractor/constants"
	"github.com/joseph-ayodele/convenio-extractor/internal/entity"
)

const archiveTable = "job_archive"

// DefaultListLimit caps List when the caller passes no limit.
const DefaultListLimit = 50

var archiveColumns = []string{
	"id",
	"filename",
	"status",
	"created_at",
	"finished_at",
	"total_pages",
	"processed_pages",
	"relevant_pages",
	"record_count",
	"has_suspect_values",
	"error_message",
	"duration_ms",
}

// ArchiveRepository persists summaries of terminal jobs.
type ArchiveRepository interface {
	Migrate(ctx context.Context) error
	Save(ctx context.Context, job entity.ArchivedJob) error
	List(ctx context.Context, status *constants.JobStatus, limit int) ([]entity.ArchivedJob, error)
}

type archiveRepo struct {
	db  *DB
	log *slog.Logger
}

func NewArchiveRepository(db *DB, log *slog.Logger) ArchiveRepository {
	if log == nil {
		log = slog.Default()
	}
	return &archiveRepo{db: db, log: log}
}

func (r *archiveRepo) builder() *entsql.DialectBuilder {
	return entsql.Dialect(r.db.Dialect)
}

// archiveIndex serves List: filter by status, newest first.
const archiveIndex = "job_archive_status_finished"

// archiveSchema is portable between sqlite and postgres. Times are unix ms.
var archiveSchema = []struct {
	step string
	ddl  string
}{
	{"table", `CREATE TABLE IF NOT EXISTS ` + archiveTable + ` (
	id                 varchar(36)  NOT NULL PRIMARY KEY,
	filename           varchar(255) NOT NULL,
	status             varchar(16)  NOT NULL,
	created_at         bigint       NOT NULL,
	finished_at        bigint       NOT NULL,
	total_pages        integer      NOT NULL DEFAULT 0,
	processed_pages    integer      NOT NULL DEFAULT 0,
	relevant_pages     integer      NOT NULL DEFAULT 0,
	record_count       integer      NOT NULL DEFAULT 0,
	has_suspect_values boolean      NOT NULL DEFAULT FALSE,
	error_message      text         NOT NULL DEFAULT '',
	duration_ms        bigint       NOT NULL DEFAULT 0
)`},
	{"index", `CREATE INDEX IF NOT EXISTS ` + archiveIndex + ` ON ` + archiveTable + ` (status, finished_at)`},
}

// Migrate creates the archive table and its listing index when missing.
func (r *archiveRepo) Migrate(ctx context.Context) error {
	for _, m := range archiveSchema {
		if _, err := r.db.Driver.DB().ExecContext(ctx, m.ddl); err != nil {
			r.log.Error("archive migrate failed", "step", m.step, "err", err)
			return fmt.Errorf("migrate %s %s: %w", archiveTable, m.step, err)
		}
	}
	r.log.Debug("archive schema ready")
	return nil
}

// Save upserts one summary keyed by job id.
func (r *archiveRepo) Save(ctx context.Context, a entity.ArchivedJob) error {
	finished := a.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}
	query, args := r.builder().Insert(archiveTable).
		Columns(archiveColumns...).
		Values(
			a.ID,
			a.Filename,
			string(a.Status),
			a.CreatedAt.UnixMilli(),
			finished.UnixMilli(),
			a.TotalPages,
			a.ProcessedPages,
			a.RelevantPages,
			a.RecordCount,
			a.HasSuspectValues,
			a.ErrorMessage,
			a.DurationMS,
		).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := r.db.Driver.DB().ExecContext(ctx, query, args...); err != nil {
		r.log.Error("archive save failed", "job_id", a.ID, "err", err)
		return err
	}
	r.log.Debug("job archived", "job_id", a.ID, "status", a.Status)
	return nil
}

// List returns archived jobs, most recently finished first, optionally
// filtered by status.
func (r *archiveRepo) List(ctx context.Context, status *constants.JobStatus, limit int) ([]entity.ArchivedJob, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	sel := r.builder().Select(archiveColumns...).
		From(entsql.Table(archiveTable)).
		OrderBy(entsql.Desc("finished_at"), entsql.Asc("id")).
		Limit(limit)
	if status != nil {
		sel.Where(entsql.EQ("status", string(*status)))
	}
	query, args := sel.Query()

	rows, err := r.db.Driver.DB().QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("archive list failed", "err", err)
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.ArchivedJob, 0)
	for rows.Next() {
		var (
			a                entity.ArchivedJob
			st               string
			createdMS, finMS int64
		)
		if err := rows.Scan(
			&a.ID,
			&a.Filename,
			&st,
			&createdMS,
			&finMS,
			&a.TotalPages,
			&a.ProcessedPages,
			&a.RelevantPages,
			&a.RecordCount,
			&a.HasSuspectValues,
			&a.ErrorMessage,
			&a.DurationMS,
		); err != nil {
			return nil, fmt.Errorf("scan archive row: %w", err)
		}
		a.Status = constants.JobStatus(st)
		a.CreatedAt = time.UnixMilli(createdMS).UTC()
		a.FinishedAt = time.UnixMilli(finMS).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// ArchiveHook adapts repo into a terminal-job observer. Failures are logged
// and never block the job table.
func ArchiveHook(repo ArchiveRepository, timeout time.Duration, log *slog.Logger) func(entity.Job, *entity.JobResult) {
	if log == nil {
		log = slog.Default()
	}
	return func(job entity.Job, result *entity.JobResult) {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		if err := repo.Save(ctx, entity.NewArchivedJob(job, result)); err != nil {
			log.Warn("archive hook failed", "job_id", job.ID, "err", err)
		}
	}
}
