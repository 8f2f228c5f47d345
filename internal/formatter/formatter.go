// package formatter provides functions to export operation results to various formats (CSV, JSON, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"scbulk/internal/models"
	"scbulk/internal/shared"
)

// MergeResultToCSV converts a MergeResult's stats to CSV with one row per source,
// followed by one row per created playlist.
func MergeResultToCSV(result *models.MergeResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"kind", "id", "title", "fetched", "accepted", "written"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, src := range result.Stats.Sources {
		record := []string{
			"source",
			strconv.FormatInt(src.ID, 10),
			"",
			strconv.Itoa(src.Fetched),
			strconv.Itoa(src.Accepted),
			"",
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	for _, target := range result.Targets() {
		record := []string{
			"target",
			strconv.FormatInt(target.ID, 10),
			target.Title,
			"",
			"",
			strconv.Itoa(target.TrackCount),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}

// BulkResultToCSV converts a BulkResult to CSV with one row per item in input order.
func BulkResultToCSV(result *models.BulkResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"id", "status", "error"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range result.Results {
		record := []string{
			strconv.FormatInt(item.ID, 10),
			item.Status,
			item.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}

	return buf.Bytes(), nil
}

// MergeResultToText renders a short human-readable merge summary.
func MergeResultToText(result *models.MergeResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Merged %d sources into %d playlist(s)\n",
		len(result.Stats.Sources), result.Stats.CollectionsCreated)
	for _, src := range result.Stats.Sources {
		fmt.Fprintf(&sb, "  source %d: fetched %d, accepted %d\n", src.ID, src.Fetched, src.Accepted)
	}
	fmt.Fprintf(&sb, "Unique tracks before cap: %d\n", result.Stats.UniqueBeforeCap)
	for _, target := range result.Targets() {
		fmt.Fprintf(&sb, "  created: %s (ID %d, %d tracks)\n", target.Title, target.ID, target.TrackCount)
	}
	fmt.Fprintf(&sb, "Total written: %d\n", result.Stats.TotalWritten)
	if !result.Stats.Verified {
		sb.WriteString("Warning: one or more targets could not be verified; counts are local\n")
	}

	return sb.String()
}

// BulkResultToText renders a short human-readable bulk summary.
func BulkResultToText(result *models.BulkResult) string {
	ok, failed := result.Counts()

	var sb strings.Builder
	fmt.Fprintf(&sb, "Processed %d items: %d ok, %d failed\n", len(result.Results), ok, failed)
	for _, item := range result.Results {
		if item.Status == models.BulkStatusError {
			fmt.Fprintf(&sb, "  ✗ %d: %s\n", item.ID, item.Error)
		}
	}

	return sb.String()
}

// WriteFile marshals data as JSON and writes it to path.
func WriteFile(path string, data any, pretty bool) error {
	out, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
