package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"scbulk/internal/models"
	"scbulk/internal/shared"
)

// MergeRunRepository implements models.Repository[*models.MergeRun].
//
// Persists one row per merge operation: sources, created targets with their
// idempotency keys, final stats, and status.
type MergeRunRepository struct {
	db *sql.DB
}

// NewMergeRunRepository creates a new MergeRunRepository with the given database connection
func NewMergeRunRepository(db *sql.DB) *MergeRunRepository {
	return &MergeRunRepository{db: db}
}

// Create inserts a new [models.MergeRun] into the database with generated ID and sequence
func (r *MergeRunRepository) Create(run *models.MergeRun) error {
	sequence, err := NextSequence(r.db, "merge_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	stats, err := json.Marshal(run.Stats())
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	query := `
		INSERT INTO merge_runs (id, sequence, title, source_ids, target_ids, idempotency_keys, stats, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.Title(),
		joinIDs(run.SourceIDs()),
		joinIDs(run.TargetIDs()),
		joinKeys(run.IdempotencyKeys()),
		string(stats),
		run.Status(),
		run.ErrMessage(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert merge run: %w", err)
	}

	return nil
}

// Get retrieves a merge run by ID, excluding soft-deleted runs
func (r *MergeRunRepository) Get(id string) (*models.MergeRun, error) {
	query := `
		SELECT id, sequence, title, source_ids, target_ids, idempotency_keys, stats, status, error, created_at, updated_at, deleted_at
		FROM merge_runs
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scanOne(r.db.QueryRow(query, id))
}

// Update modifies an existing merge run in the database
func (r *MergeRunRepository) Update(run *models.MergeRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	stats, err := json.Marshal(run.Stats())
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE merge_runs
		SET title = ?, target_ids = ?, idempotency_keys = ?, stats = ?, status = ?, error = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		run.Title(),
		joinIDs(run.TargetIDs()),
		joinKeys(run.IdempotencyKeys()),
		string(stats),
		run.Status(),
		run.ErrMessage(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update merge run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("merge run not found or already deleted: %s", run.ID())
	}

	return nil
}

// Delete soft-deletes a merge run by ID
func (r *MergeRunRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE merge_runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete merge run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("merge run not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all merge runs matching the given criteria, excluding soft-deleted runs
func (r *MergeRunRepository) List(criteria map[string]any) ([]*models.MergeRun, error) {
	query := `
		SELECT id, sequence, title, source_ids, target_ids, idempotency_keys, stats, status, error, created_at, updated_at, deleted_at
		FROM merge_runs
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query merge runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.MergeRun
	for rows.Next() {
		run, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func (r *MergeRunRepository) scan(row scannable) (*models.MergeRun, error) {
	var (
		id         string
		sequence   int
		title      string
		sourceCSV  string
		targetCSV  string
		keysCSV    string
		statsJSON  string
		status     string
		errMessage sql.NullString
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &title, &sourceCSV, &targetCSV, &keysCSV, &statsJSON, &status, &errMessage, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("merge run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan merge run: %w", err)
	}

	sourceIDs, err := splitIDs(sourceCSV)
	if err != nil {
		return nil, err
	}
	targetIDs, err := splitIDs(targetCSV)
	if err != nil {
		return nil, err
	}

	var stats models.MergeStats
	if err := json.Unmarshal([]byte(statsJSON), &stats); err != nil {
		return nil, fmt.Errorf("failed to decode stats: %w", err)
	}

	run := models.NewMergeRun(sequence, title, sourceIDs, targetIDs, splitKeys(keysCSV), stats, status, errMessage.String)
	run.SetID(id)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

func (r *MergeRunRepository) scanOne(row *sql.Row) (*models.MergeRun, error) {
	return r.scan(row)
}

func (r *MergeRunRepository) scanRow(rows *sql.Rows) (*models.MergeRun, error) {
	return r.scan(rows)
}
