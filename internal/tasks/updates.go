package tasks

import (
	"fmt"

	"scbulk/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration.
//
// A merge walks FetchSources → Deduplicate → WriteBatches → Verify →
// Complete, entering Failed from any phase on an unrecoverable error.
type Phase int

const (
	Idle Phase = iota
	FetchSources
	Deduplicate
	WriteBatches
	Verify
	Complete
	Failed
	BulkItems
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case FetchSources:
		return "fetching_sources"
	case Deduplicate:
		return "deduplicating"
	case WriteBatches:
		return "writing_batches"
	case Verify:
		return "verifying"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	case BulkItems:
		return "bulk_items"
	default:
		return ""
	}
}

func fetchSourceUpdate(step, total int, playlistID int64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSources,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching source playlist %d...", step, total, playlistID),
	}
}

func sourceFetchedUpdate(step, total, fetched, accepted int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSources,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetched %d tracks, %d accepted", step, total, fetched, accepted),
	}
}

func dedupeUpdate(unique int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Deduplicate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d unique tracks after dedup", unique),
	}
}

func writeBatchUpdate(target, targets, written, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteBatches,
		Step:    written,
		Total:   total,
		Message: fmt.Sprintf("Target %d/%d: %d/%d tracks written", target, targets, written, total),
	}
}

func targetCreatedUpdate(target, targets int, pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteBatches,
		Step:    target,
		Total:   targets,
		Message: fmt.Sprintf("Created playlist: %s (ID: %d)", pl.Title, pl.ID),
		Data:    pl,
	}
}

func verifyUpdate(target, targets int, verified bool) ProgressUpdate {
	msg := fmt.Sprintf("Verified target %d/%d", target, targets)
	if !verified {
		msg = fmt.Sprintf("Could not verify target %d/%d, trusting local count", target, targets)
	}
	return ProgressUpdate{
		Phase:   Verify,
		Step:    target,
		Total:   targets,
		Message: msg,
	}
}

func mergeCompleteUpdate(result *models.MergeResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Merge complete: %d tracks across %d playlists", result.Stats.TotalWritten, result.Stats.CollectionsCreated),
		Data:    result,
	}
}

func bulkItemUpdate(step, total int, id int64, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %d", step, total, id)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %d: %v", step, total, id, err)
	}
	return ProgressUpdate{
		Phase:   BulkItems,
		Step:    step,
		Total:   total,
		Message: msg,
	}
}
