package formatter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"scbulk/internal/models"
)

func sampleMergeResult() *models.MergeResult {
	return &models.MergeResult{
		Collections: []models.Playlist{
			{ID: 9001, Title: "Mega Mix (1/2)", TrackCount: 500},
			{ID: 9002, Title: "Mega Mix (2/2)", TrackCount: 150},
		},
		Stats: models.MergeStats{
			Sources: []models.SourceStats{
				{ID: 100, Fetched: 400, Accepted: 380},
				{ID: 200, Fetched: 350, Accepted: 270},
			},
			UniqueBeforeCap:    650,
			TotalWritten:       650,
			CollectionsCreated: 2,
			Verified:           true,
		},
	}
}

func TestMergeResultExporters(t *testing.T) {
	t.Run("ToCSV", func(t *testing.T) {
		data, err := MergeResultToCSV(sampleMergeResult())
		if err != nil {
			t.Fatalf("MergeResultToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "kind,id,title,fetched,accepted,written") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "source,100,,400,380,") {
			t.Errorf("CSV missing first source row, got: %s", output)
		}
		if !strings.Contains(output, "source,200,,350,270,") {
			t.Errorf("CSV missing second source row, got: %s", output)
		}
		if !strings.Contains(output, "target,9001,Mega Mix (1/2),,,500") {
			t.Errorf("CSV missing first target row, got: %s", output)
		}
		if !strings.Contains(output, "target,9002,Mega Mix (2/2),,,150") {
			t.Errorf("CSV missing second target row, got: %s", output)
		}

		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 5 {
			t.Errorf("expected 5 CSV lines (header + 2 sources + 2 targets), got %d", len(lines))
		}
	})

	t.Run("ToCSVSingleTarget", func(t *testing.T) {
		result := &models.MergeResult{
			Collection: &models.Playlist{ID: 42, Title: "Just One", TrackCount: 12},
			Stats: models.MergeStats{
				Sources:            []models.SourceStats{{ID: 1, Fetched: 12, Accepted: 12}},
				CollectionsCreated: 1,
			},
		}

		data, err := MergeResultToCSV(result)
		if err != nil {
			t.Fatalf("MergeResultToCSV failed: %v", err)
		}

		if !strings.Contains(string(data), "target,42,Just One,,,12") {
			t.Errorf("CSV missing single-target row, got: %s", data)
		}
	})

	t.Run("ToText", func(t *testing.T) {
		output := MergeResultToText(sampleMergeResult())

		if !strings.Contains(output, "Merged 2 sources into 2 playlist(s)") {
			t.Errorf("text missing summary line, got: %s", output)
		}
		if !strings.Contains(output, "source 100: fetched 400, accepted 380") {
			t.Errorf("text missing source line, got: %s", output)
		}
		if !strings.Contains(output, "Unique tracks before cap: 650") {
			t.Errorf("text missing unique count, got: %s", output)
		}
		if !strings.Contains(output, "created: Mega Mix (2/2) (ID 9002, 150 tracks)") {
			t.Errorf("text missing target line, got: %s", output)
		}
		if !strings.Contains(output, "Total written: 650") {
			t.Errorf("text missing total, got: %s", output)
		}
		if strings.Contains(output, "could not be verified") {
			t.Errorf("verified result should not carry the warning, got: %s", output)
		}
	})

	t.Run("ToTextUnverified", func(t *testing.T) {
		result := sampleMergeResult()
		result.Stats.Verified = false

		output := MergeResultToText(result)

		if !strings.Contains(output, "Warning: one or more targets could not be verified; counts are local") {
			t.Errorf("unverified result missing warning, got: %s", output)
		}
	})
}

func TestBulkResultExporters(t *testing.T) {
	result := &models.BulkResult{
		Results: []models.BulkItemResult{
			{ID: 1, Status: models.BulkStatusOK},
			{ID: 2, Status: models.BulkStatusError, Error: "track not found"},
			{ID: 3, Status: models.BulkStatusOK},
		},
	}

	t.Run("ToCSV", func(t *testing.T) {
		data, err := BulkResultToCSV(result)
		if err != nil {
			t.Fatalf("BulkResultToCSV failed: %v", err)
		}

		output := string(data)

		if !strings.Contains(output, "id,status,error") {
			t.Errorf("CSV missing headers, got: %s", output)
		}

		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header + 3 rows, got %d lines", len(lines))
		}
		if lines[1] != "1,ok," {
			t.Errorf("expected row '1,ok,', got %q", lines[1])
		}
		if lines[2] != "2,error,track not found" {
			t.Errorf("expected failure row, got %q", lines[2])
		}
	})

	t.Run("ToText", func(t *testing.T) {
		output := BulkResultToText(result)

		if !strings.Contains(output, "Processed 3 items: 2 ok, 1 failed") {
			t.Errorf("text missing summary line, got: %s", output)
		}
		if !strings.Contains(output, "✗ 2: track not found") {
			t.Errorf("text missing failure line, got: %s", output)
		}
		if strings.Contains(output, "✗ 1") || strings.Contains(output, "✗ 3") {
			t.Errorf("successful items should not be listed, got: %s", output)
		}
	})
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("WritesCompactJSON", func(t *testing.T) {
		path := filepath.Join(dir, "result.json")
		result := &models.BulkResult{
			Results: []models.BulkItemResult{{ID: 5, Status: models.BulkStatusOK}},
		}

		if err := WriteFile(path, result, false); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}

		var parsed models.BulkResult
		if err := json.Unmarshal(data, &parsed); err != nil {
			t.Fatalf("written file is not valid JSON: %v", err)
		}
		if len(parsed.Results) != 1 || parsed.Results[0].ID != 5 {
			t.Errorf("round-tripped result mismatch: %+v", parsed)
		}
	})

	t.Run("PrettyPrints", func(t *testing.T) {
		path := filepath.Join(dir, "pretty.json")

		if err := WriteFile(path, map[string]int{"a": 1}, true); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile failed: %v", err)
		}
		if !strings.Contains(string(data), "\n") {
			t.Errorf("pretty output should be indented, got: %s", data)
		}
	})

	t.Run("UnmarshalableData", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")

		if err := WriteFile(path, make(chan int), false); err == nil {
			t.Error("expected error for unmarshalable data")
		}
	})
}
