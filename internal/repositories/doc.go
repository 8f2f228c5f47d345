// Package repositories provides persistence layer implementations for operation history.
//
// Each repository implements models.Repository[T] for a specific entity type,
// handling CRUD operations, soft deletes, and sequence generation. History is
// diagnostics and record-keeping only: runs are never resumed from it, and a
// failed multi-target merge uses its record to identify playlists that were
// created before the failure.
package repositories
