package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"scbulk/internal/models"
	"scbulk/internal/soundcloud"
)

type createCall struct {
	title   string
	sharing string
	ids     []int64
}

type setCall struct {
	playlistID int64
	ids        []int64
}

type mockPlaylistAPI struct {
	tracks    map[int64][]models.Track
	tracksErr map[int64]error

	createCalls []createCall
	setCalls    []setCall
	createErr   error
	setErr      error
	playlistErr error

	nextID int64
	state  map[int64][]int64 // current track ids per created playlist
}

func newMockPlaylistAPI() *mockPlaylistAPI {
	return &mockPlaylistAPI{
		tracks:    map[int64][]models.Track{},
		tracksErr: map[int64]error{},
		state:     map[int64][]int64{},
		nextID:    9000,
	}
}

func (m *mockPlaylistAPI) Playlist(ctx context.Context, cred *soundcloud.Credential, id int64) (*models.Playlist, error) {
	if m.playlistErr != nil {
		return nil, m.playlistErr
	}
	ids, ok := m.state[id]
	if !ok {
		return nil, fmt.Errorf("playlist %d not found", id)
	}
	return &models.Playlist{ID: id, TrackCount: len(ids)}, nil
}

func (m *mockPlaylistAPI) PlaylistTracks(ctx context.Context, cred *soundcloud.Credential, id int64, pageSize int) ([]models.Track, error) {
	if err, ok := m.tracksErr[id]; ok {
		return nil, err
	}
	tracks, ok := m.tracks[id]
	if !ok {
		return nil, fmt.Errorf("playlist %d not found", id)
	}
	return tracks, nil
}

func (m *mockPlaylistAPI) CreatePlaylist(ctx context.Context, cred *soundcloud.Credential, title, sharing string, trackIDs []int64) (*models.Playlist, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.createCalls = append(m.createCalls, createCall{title: title, sharing: sharing, ids: append([]int64(nil), trackIDs...)})
	m.nextID++
	m.state[m.nextID] = append([]int64(nil), trackIDs...)
	return &models.Playlist{ID: m.nextID, Title: title, Sharing: sharing, TrackCount: len(trackIDs)}, nil
}

func (m *mockPlaylistAPI) SetPlaylistTracks(ctx context.Context, cred *soundcloud.Credential, id int64, trackIDs []int64) error {
	if m.setErr != nil {
		return m.setErr
	}
	if _, ok := m.state[id]; !ok {
		return fmt.Errorf("playlist %d not found", id)
	}
	m.setCalls = append(m.setCalls, setCall{playlistID: id, ids: append([]int64(nil), trackIDs...)})
	m.state[id] = append([]int64(nil), trackIDs...)
	return nil
}

// playableTracks builds n playable tracks with ids start..start+n-1.
func playableTracks(start int64, n int) []models.Track {
	tracks := make([]models.Track, 0, n)
	for i := int64(0); i < int64(n); i++ {
		tracks = append(tracks, models.Track{
			ID:            start + i,
			Title:         fmt.Sprintf("Track %d", start+i),
			Streamable:    true,
			PlaybackCount: 10,
		})
	}
	return tracks
}

func testEngine(api PlaylistAPI) *MergeEngine {
	return NewMergeEngine(MergeOpts{
		API:            api,
		RequestsPerSec: 100000, // keep tests from sleeping on the limiter
	})
}

func TestMergeEngine_Run_SourceCountValidation(t *testing.T) {
	engine := testEngine(newMockPlaylistAPI())
	cred := &soundcloud.Credential{AccessToken: "token"}

	tests := []struct {
		name    string
		sources []int64
	}{
		{"no sources", nil},
		{"one source", []int64{1}},
		{"eleven sources", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: tt.sources}, nil)
			if err == nil {
				t.Fatalf("expected error for %d sources", len(tt.sources))
			}
		})
	}
}

func TestMergeEngine_Run_DedupKeepsFirstOccurrence(t *testing.T) {
	api := newMockPlaylistAPI()
	api.tracks[1] = playableTracks(100, 3) // 100, 101, 102
	api.tracks[2] = []models.Track{
		{ID: 102, Streamable: true, PlaybackCount: 5}, // duplicate
		{ID: 200, Streamable: true, PlaybackCount: 5},
		{ID: 100, Streamable: true, PlaybackCount: 5}, // duplicate
	}

	engine := testEngine(api)
	cred := &soundcloud.Credential{AccessToken: "token"}

	result, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: []int64{1, 2}, Title: "Combined"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(api.createCalls) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(api.createCalls))
	}

	want := []int64{100, 101, 102, 200}
	got := api.createCalls[0].ids
	if len(got) != len(want) {
		t.Fatalf("expected %d unique tracks, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected track %d, got %d", i, want[i], got[i])
		}
	}

	if result.Stats.UniqueBeforeCap != 4 {
		t.Errorf("expected 4 unique before cap, got %d", result.Stats.UniqueBeforeCap)
	}
	if result.Collection == nil {
		t.Fatal("expected single collection in result")
	}
	if result.Collection.Title != "Combined" {
		t.Errorf("expected title 'Combined', got %q", result.Collection.Title)
	}
}

func TestMergeEngine_Run_FiltersUnplayableTracks(t *testing.T) {
	api := newMockPlaylistAPI()
	api.tracks[1] = []models.Track{
		{ID: 1, Streamable: true, PlaybackCount: 10},
		{ID: 2, Streamable: true, Policy: "BLOCK", PlaybackCount: 10}, // blocked
		{ID: 3, Streamable: false, PlaybackCount: 10},                 // not streamable
		{ID: 4, Streamable: true},                                     // zero engagement
		{ID: 5, Streamable: true, LikesCount: 1},
	}
	api.tracks[2] = playableTracks(50, 1)

	engine := testEngine(api)
	cred := &soundcloud.Credential{AccessToken: "token"}

	result, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: []int64{1, 2}, Title: "t"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Stats.Sources[0].Fetched != 5 {
		t.Errorf("expected 5 fetched from source 1, got %d", result.Stats.Sources[0].Fetched)
	}
	if result.Stats.Sources[0].Accepted != 2 {
		t.Errorf("expected 2 accepted from source 1, got %d", result.Stats.Sources[0].Accepted)
	}

	got := api.createCalls[0].ids
	want := []int64{1, 5, 50}
	if len(got) != len(want) {
		t.Fatalf("expected tracks %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("position %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestMergeEngine_Run_NoPlayableTracks(t *testing.T) {
	api := newMockPlaylistAPI()
	api.tracks[1] = []models.Track{{ID: 1, Streamable: false}}
	api.tracks[2] = []models.Track{}

	engine := testEngine(api)
	cred := &soundcloud.Credential{AccessToken: "token"}

	_, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: []int64{1, 2}}, nil)
	if err == nil {
		t.Fatal("expected error when no tracks survive filtering")
	}
	if len(api.createCalls) != 0 {
		t.Errorf("expected no playlist creation, got %d calls", len(api.createCalls))
	}
}

func TestMergeEngine_Run_SourceFetchFailureAborts(t *testing.T) {
	api := newMockPlaylistAPI()
	api.tracks[1] = playableTracks(1, 5)
	api.tracksErr[2] = errors.New("boom")

	engine := testEngine(api)
	cred := &soundcloud.Credential{AccessToken: "token"}

	_, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: []int64{1, 2}}, nil)
	if err == nil {
		t.Fatal("expected error when a source fetch fails")
	}
	if len(api.createCalls) != 0 {
		t.Errorf("expected no playlist creation after fetch failure, got %d", len(api.createCalls))
	}
}

func TestMergeEngine_Run_WritesCumulativeBatches(t *testing.T) {
	api := newMockPlaylistAPI()
	api.tracks[1] = playableTracks(1, 150)
	api.tracks[2] = playableTracks(151, 100)

	engine := testEngine(api)
	cred := &soundcloud.Credential{AccessToken: "token"}

	result, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: []int64{1, 2}, Title: "Big"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 250 unique: one create with the first 100, then extends to 200 and 250.
	if len(api.createCalls) != 1 {
		t.Fatalf("expected 1 create call, got %d", len(api.createCalls))
	}
	if len(api.createCalls[0].ids) != 100 {
		t.Errorf("expected create with 100 tracks, got %d", len(api.createCalls[0].ids))
	}

	if len(api.setCalls) != 2 {
		t.Fatalf("expected 2 extend calls, got %d", len(api.setCalls))
	}
	if len(api.setCalls[0].ids) != 200 {
		t.Errorf("expected first extend with cumulative 200 tracks, got %d", len(api.setCalls[0].ids))
	}
	if len(api.setCalls[1].ids) != 250 {
		t.Errorf("expected second extend with cumulative 250 tracks, got %d", len(api.setCalls[1].ids))
	}
	if api.setCalls[1].ids[0] != 1 {
		t.Errorf("extends must restate the list from the beginning, first id was %d", api.setCalls[1].ids[0])
	}

	if result.Stats.TotalWritten != 250 {
		t.Errorf("expected 250 written, got %d", result.Stats.TotalWritten)
	}
	if !result.Stats.Verified {
		t.Error("expected verified result")
	}
}

func TestMergeEngine_Run_SplitsAtTrackCap(t *testing.T) {
	api := newMockPlaylistAPI()
	api.tracks[1] = playableTracks(1, 400)
	api.tracks[2] = playableTracks(401, 250)

	engine := testEngine(api)
	cred := &soundcloud.Credential{AccessToken: "token"}

	result, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: []int64{1, 2}, Title: "Mega"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 650 unique tracks split into 500 + 150 across two playlists.
	if len(api.createCalls) != 2 {
		t.Fatalf("expected 2 create calls, got %d", len(api.createCalls))
	}
	if api.createCalls[0].title != "Mega (1/2)" {
		t.Errorf("expected title 'Mega (1/2)', got %q", api.createCalls[0].title)
	}
	if api.createCalls[1].title != "Mega (2/2)" {
		t.Errorf("expected title 'Mega (2/2)', got %q", api.createCalls[1].title)
	}

	if result.Collection != nil {
		t.Error("expected collections, not a single collection")
	}
	if len(result.Collections) != 2 {
		t.Fatalf("expected 2 collections, got %d", len(result.Collections))
	}
	if result.Collections[0].TrackCount != 500 {
		t.Errorf("expected first target with 500 tracks, got %d", result.Collections[0].TrackCount)
	}
	if result.Collections[1].TrackCount != 150 {
		t.Errorf("expected second target with 150 tracks, got %d", result.Collections[1].TrackCount)
	}
	if result.Stats.TotalWritten != 650 {
		t.Errorf("expected 650 total written, got %d", result.Stats.TotalWritten)
	}
	if result.Stats.CollectionsCreated != 2 {
		t.Errorf("expected 2 collections created, got %d", result.Stats.CollectionsCreated)
	}
}

func TestMergeEngine_Run_VerificationFallback(t *testing.T) {
	api := newMockPlaylistAPI()
	api.tracks[1] = playableTracks(1, 3)
	api.tracks[2] = playableTracks(10, 3)
	api.playlistErr = errors.New("verification fetch failed")

	engine := testEngine(api)
	cred := &soundcloud.Credential{AccessToken: "token"}

	result, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: []int64{1, 2}, Title: "t"}, nil)
	if err != nil {
		t.Fatalf("verification failure must not abort the merge: %v", err)
	}

	if result.Stats.Verified {
		t.Error("expected verified=false after failed re-fetch")
	}
	if result.Collection.TrackCount != 6 {
		t.Errorf("expected local count 6 as fallback, got %d", result.Collection.TrackCount)
	}
}

func TestMergeEngine_Run_DefaultTitle(t *testing.T) {
	api := newMockPlaylistAPI()
	api.tracks[1] = playableTracks(1, 2)
	api.tracks[2] = playableTracks(10, 2)

	engine := testEngine(api)
	engine.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 0, 0, time.UTC)
	}
	cred := &soundcloud.Credential{AccessToken: "token"}

	_, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: []int64{1, 2}}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if api.createCalls[0].title != "Merged 2026-03-14 09:26" {
		t.Errorf("unexpected default title %q", api.createCalls[0].title)
	}
}

func TestMergeEngine_Run_RecordsTargets(t *testing.T) {
	api := newMockPlaylistAPI()
	api.tracks[1] = playableTracks(1, 300)
	api.tracks[2] = playableTracks(301, 300)

	var keys []string
	var targetIDs []int64
	engine := NewMergeEngine(MergeOpts{
		API:            api,
		RequestsPerSec: 100000,
		OnTarget: func(key string, pl models.Playlist) {
			keys = append(keys, key)
			targetIDs = append(targetIDs, pl.ID)
		},
	})
	cred := &soundcloud.Credential{AccessToken: "token"}

	result, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: []int64{1, 2}, Title: "t"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(keys) != 2 || len(targetIDs) != 2 {
		t.Fatalf("expected 2 recorded targets, got %d keys and %d ids", len(keys), len(targetIDs))
	}
	if keys[0] == keys[1] {
		t.Error("idempotency keys must be unique per target")
	}
	for i, target := range result.Collections {
		if target.ID != targetIDs[i] {
			t.Errorf("target %d: recorded id %d does not match result id %d", i, targetIDs[i], target.ID)
		}
	}
}

func TestMergeEngine_Run_ProgressMessages(t *testing.T) {
	api := newMockPlaylistAPI()
	api.tracks[1] = playableTracks(1, 2)
	api.tracks[2] = playableTracks(10, 2)

	engine := testEngine(api)
	cred := &soundcloud.Credential{AccessToken: "token"}

	progressCh := make(chan ProgressUpdate, 50)
	_, err := engine.Run(context.Background(), cred, models.MergeRequest{SourceIDs: []int64{1, 2}, Title: "t"}, progressCh)
	close(progressCh)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var phases []Phase
	var messages []string
	for update := range progressCh {
		phases = append(phases, update.Phase)
		messages = append(messages, update.Message)
	}

	if len(phases) == 0 {
		t.Fatal("expected progress updates")
	}
	if phases[0] != FetchSources {
		t.Errorf("expected first phase fetching_sources, got %v", phases[0])
	}
	if phases[len(phases)-1] != Complete {
		t.Errorf("expected last phase complete, got %v", phases[len(phases)-1])
	}
	joined := strings.Join(messages, "\n")
	if !strings.Contains(joined, "unique tracks after dedup") {
		t.Error("expected a dedup progress message")
	}
}

func TestChunkIDs(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want []int
	}{
		{"empty", 0, 500, nil},
		{"under cap", 120, 500, []int{120}},
		{"exactly cap", 500, 500, []int{500}},
		{"one over cap", 501, 500, []int{500, 1}},
		{"several chunks", 1250, 500, []int{500, 500, 250}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := make([]int64, tt.n)
			for i := range ids {
				ids[i] = int64(i)
			}

			chunks := chunkIDs(ids, tt.size)
			if len(chunks) != len(tt.want) {
				t.Fatalf("expected %d chunks, got %d", len(tt.want), len(chunks))
			}
			for i, want := range tt.want {
				if len(chunks[i]) != want {
					t.Errorf("chunk %d: expected %d ids, got %d", i, want, len(chunks[i]))
				}
			}
		})
	}
}
