// Package tasks orchestrates bulk operations against the upstream API with real-time progress reporting.
//
// # Core Operations
//
//  1. [MergeEngine.Run] : Merge 2..10 source playlists into one deduplicated target
//     - Fetches each source's full track list sequentially, in caller order
//     - Filters blocked, non-streamable, and zero-engagement tracks
//     - Deduplicates with first-occurrence-wins ordering
//     - Writes targets in batches of at most 100 ids, splitting into multiple
//       playlists when the unique set exceeds the 500-track platform cap
//     - Verifies each target with a post-write re-fetch
//
//  2. [BulkRunner.Run] : Apply one mutating action across many ids
//     - Strictly sequential, never concurrent
//     - Per-item outcomes in input order; one failure never stops the batch
//
// # Pacing & Cancellation
//
// All upstream calls inside one operation are serialized and paced through a
// [rate.Limiter], trading latency for staying under the upstream rate limit.
// The limiter waits and every network call honor context cancellation, so a
// caller can abandon a long run promptly.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values through a caller-supplied channel.
// Sends use select with default so a slow or absent consumer never blocks
// execution.
//
// # Failure Semantics
//
// A merge aborts on the first propagated error; playlists already created in a
// multi-target run are not rolled back. Each target carries an idempotency key
// surfaced through the optional [TargetRecorder] hook so callers can record
// what was created before a failure. Bulk runs localize per-item failures but
// abort on authentication errors and cancellation, which are session-wide.
package tasks
