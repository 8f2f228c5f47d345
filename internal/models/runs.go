package models

import (
	"fmt"
	"time"
)

// Run statuses for persisted operation history.
const (
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// MergeRun is a persisted record of one merge operation.
//
// History is record-keeping only; runs are never resumed.
type MergeRun struct {
	id              string
	sequence        int
	title           string
	sourceIDs       []int64
	targetIDs       []int64
	idempotencyKeys []string
	stats           MergeStats
	status          string
	errMessage      string
	createdAt       time.Time
	updatedAt       time.Time
	deletedAt       *time.Time
}

// NewMergeRun creates a MergeRun for the given request and outcome.
func NewMergeRun(sequence int, title string, sourceIDs []int64, targetIDs []int64, keys []string, stats MergeStats, status, errMessage string) *MergeRun {
	now := time.Now()
	return &MergeRun{
		sequence:        sequence,
		title:           title,
		sourceIDs:       sourceIDs,
		targetIDs:       targetIDs,
		idempotencyKeys: keys,
		stats:           stats,
		status:          status,
		errMessage:      errMessage,
		createdAt:       now,
		updatedAt:       now,
	}
}

func (m *MergeRun) ID() string                 { return m.id }
func (m *MergeRun) SetID(id string)            { m.id = id }
func (m *MergeRun) Sequence() int              { return m.sequence }
func (m *MergeRun) Title() string              { return m.title }
func (m *MergeRun) SourceIDs() []int64         { return m.sourceIDs }
func (m *MergeRun) TargetIDs() []int64         { return m.targetIDs }
func (m *MergeRun) IdempotencyKeys() []string  { return m.idempotencyKeys }
func (m *MergeRun) Stats() MergeStats          { return m.stats }
func (m *MergeRun) Status() string             { return m.status }
func (m *MergeRun) ErrMessage() string         { return m.errMessage }
func (m *MergeRun) CreatedAt() time.Time       { return m.createdAt }
func (m *MergeRun) UpdatedAt() time.Time       { return m.updatedAt }
func (m *MergeRun) SetUpdatedAt(t time.Time)   { m.updatedAt = t }
func (m *MergeRun) DeletedAt() *time.Time      { return m.deletedAt }
func (m *MergeRun) SetDeletedAt(t *time.Time)  { m.deletedAt = t }
func (m *MergeRun) SetCreatedAt(t time.Time)   { m.createdAt = t }

// Validate checks the run's data before persistence.
func (m *MergeRun) Validate() error {
	if m.id == "" {
		return fmt.Errorf("merge run id is required")
	}
	if len(m.sourceIDs) == 0 {
		return fmt.Errorf("merge run has no source ids")
	}
	if m.status != RunStatusComplete && m.status != RunStatusFailed {
		return fmt.Errorf("invalid merge run status: %s", m.status)
	}
	return nil
}

// BulkRun is a persisted record of one bulk operation.
type BulkRun struct {
	id        string
	sequence  int
	action    string
	result    BulkResult
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewBulkRun creates a BulkRun for the given action and result set.
func NewBulkRun(sequence int, action string, result BulkResult) *BulkRun {
	now := time.Now()
	return &BulkRun{
		sequence:  sequence,
		action:    action,
		result:    result,
		createdAt: now,
		updatedAt: now,
	}
}

func (b *BulkRun) ID() string                { return b.id }
func (b *BulkRun) SetID(id string)           { b.id = id }
func (b *BulkRun) Sequence() int             { return b.sequence }
func (b *BulkRun) Action() string            { return b.action }
func (b *BulkRun) Result() BulkResult        { return b.result }
func (b *BulkRun) CreatedAt() time.Time      { return b.createdAt }
func (b *BulkRun) UpdatedAt() time.Time      { return b.updatedAt }
func (b *BulkRun) SetUpdatedAt(t time.Time)  { b.updatedAt = t }
func (b *BulkRun) SetCreatedAt(t time.Time)  { b.createdAt = t }
func (b *BulkRun) DeletedAt() *time.Time     { return b.deletedAt }
func (b *BulkRun) SetDeletedAt(t *time.Time) { b.deletedAt = t }

// Validate checks the run's data before persistence.
func (b *BulkRun) Validate() error {
	if b.id == "" {
		return fmt.Errorf("bulk run id is required")
	}
	if b.action == "" {
		return fmt.Errorf("bulk run action is required")
	}
	return nil
}
