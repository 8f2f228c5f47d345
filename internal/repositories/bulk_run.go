package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"scbulk/internal/models"
	"scbulk/internal/shared"
)

// BulkRunRepository implements models.Repository[*models.BulkRun].
//
// Persists one row per bulk operation with its full per-item result set.
type BulkRunRepository struct {
	db *sql.DB
}

// NewBulkRunRepository creates a new BulkRunRepository with the given database connection
func NewBulkRunRepository(db *sql.DB) *BulkRunRepository {
	return &BulkRunRepository{db: db}
}

// Create inserts a new [models.BulkRun] into the database with generated ID and sequence
func (r *BulkRunRepository) Create(run *models.BulkRun) error {
	sequence, err := NextSequence(r.db, "bulk_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result := run.Result()
	results, err := json.Marshal(&result)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	ok, failed := result.Counts()

	query := `
		INSERT INTO bulk_runs (id, sequence, action, total, succeeded, failed, results, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.Action(),
		len(result.Results),
		ok,
		failed,
		string(results),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert bulk run: %w", err)
	}

	return nil
}

// Get retrieves a bulk run by ID, excluding soft-deleted runs
func (r *BulkRunRepository) Get(id string) (*models.BulkRun, error) {
	query := `
		SELECT id, sequence, action, results, created_at, updated_at, deleted_at
		FROM bulk_runs
		WHERE id = ? AND deleted_at IS NULL
	`

	return r.scan(r.db.QueryRow(query, id))
}

// Update modifies an existing bulk run in the database
func (r *BulkRunRepository) Update(run *models.BulkRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	result := run.Result()
	results, err := json.Marshal(&result)
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	ok, failed := result.Counts()

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE bulk_runs
		SET action = ?, total = ?, succeeded = ?, failed = ?, results = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	res, err := r.db.Exec(query, run.Action(), len(result.Results), ok, failed, string(results), now, run.ID())
	if err != nil {
		return fmt.Errorf("failed to update bulk run: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bulk run not found or already deleted: %s", run.ID())
	}

	return nil
}

// Delete soft-deletes a bulk run by ID
func (r *BulkRunRepository) Delete(id string) error {
	now := time.Now()

	query := `
		UPDATE bulk_runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	res, err := r.db.Exec(query, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete bulk run: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("bulk run not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all bulk runs matching the given criteria, excluding soft-deleted runs
func (r *BulkRunRepository) List(criteria map[string]any) ([]*models.BulkRun, error) {
	query := `
		SELECT id, sequence, action, results, created_at, updated_at, deleted_at
		FROM bulk_runs
		WHERE deleted_at IS NULL
	`

	args := []any{}

	if action, ok := criteria["action"].(string); ok && action != "" {
		query += " AND action = ?"
		args = append(args, action)
	}

	query += " ORDER BY sequence DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bulk runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.BulkRun
	for rows.Next() {
		run, err := r.scan(rows)
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

func (r *BulkRunRepository) scan(row scannable) (*models.BulkRun, error) {
	var (
		id          string
		sequence    int
		action      string
		resultsJSON string
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &action, &resultsJSON, &createdAt, &updatedAt, &deletedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bulk run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan bulk run: %w", err)
	}

	var result models.BulkResult
	if err := json.Unmarshal([]byte(resultsJSON), &result); err != nil {
		return nil, fmt.Errorf("failed to decode results: %w", err)
	}

	run := models.NewBulkRun(sequence, action, result)
	run.SetID(id)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}
