package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sevigo/rate-my-mr/internal/core"
)

// ErrNoRun is returned when no rating was stored for a merge request yet.
var ErrNoRun = errors.New("no previous run")

// RunStore persists the history of ratings.
type RunStore interface {
	SaveRun(ctx context.Context, run *core.Run) error
	LatestRun(ctx context.Context, project string, iid int) (*core.Run, error)
}

type postgresStore struct {
	db *sqlx.DB
}

// NewStore creates a Postgres backed RunStore.
func NewStore(db *sqlx.DB) RunStore {
	return &postgresStore{db: db}
}

type runRow struct {
	ID        int64     `db:"id"`
	Project   string    `db:"project"`
	MRIID     int       `db:"mr_iid"`
	HeadSHA   string    `db:"head_sha"`
	Score     int       `db:"score"`
	Total     int       `db:"total"`
	Passed    bool      `db:"passed"`
	Report    string    `db:"report"`
	CreatedAt time.Time `db:"created_at"`
}

// SaveRun inserts a run. CreatedAt is set when it is zero.
func (s *postgresStore) SaveRun(ctx context.Context, run *core.Run) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO rating_runs (project, mr_iid, head_sha, score, total, passed, report, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := s.db.QueryRowxContext(ctx, query,
		run.Project, run.MRIID, run.HeadSHA, run.Score, run.Total, run.Passed, run.Report, run.CreatedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to save run for %s!%d: %w", run.Project, run.MRIID, err)
	}
	return nil
}

// LatestRun returns the most recent run for the merge request, or ErrNoRun.
func (s *postgresStore) LatestRun(ctx context.Context, project string, iid int) (*core.Run, error) {
	query := `
		SELECT id, project, mr_iid, head_sha, score, total, passed, report, created_at
		FROM rating_runs
		WHERE project = $1 AND mr_iid = $2
		ORDER BY created_at DESC
		LIMIT 1`

	var row runRow
	if err := s.db.GetContext(ctx, &row, query, project, iid); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s!%d: %w", project, iid, ErrNoRun)
		}
		return nil, err
	}
	return &core.Run{
		ID:        row.ID,
		Project:   row.Project,
		MRIID:     row.MRIID,
		HeadSHA:   row.HeadSHA,
		Score:     row.Score,
		Total:     row.Total,
		Passed:    row.Passed,
		Report:    row.Report,
		CreatedAt: row.CreatedAt,
	}, nil
}

type noopStore struct{}

// NewNoopStore returns a RunStore used when no database is configured.
func NewNoopStore() RunStore { return noopStore{} }

func (noopStore) SaveRun(context.Context, *core.Run) error { return nil }

func (noopStore) LatestRun(_ context.Context, project string, iid int) (*core.Run, error) {
	return nil, fmt.Errorf("%s!%d: %w", project, iid, ErrNoRun)
}
