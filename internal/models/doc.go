// Package models defines domain entities and persistence interfaces for the scbulk service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing upstream SoundCloud data
//   - [Track] : Track metadata with playability and engagement fields
//   - [User] : User metadata for follow operations
//   - [Playlist] : Playlist metadata with ordered track ids
//
// 2. Operation values and persistent entities:
//   - [MergeRequest] / [MergeResult] / [MergeStats] : Playlist merge input and output
//   - [BulkResult] / [BulkItemResult] : Per-item outcomes of bulk operations
//   - [MergeRun] / [BulkRun] : Database-backed operation history records
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
