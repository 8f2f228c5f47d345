// Package soundcloud implements a resilient client for the SoundCloud API.
//
// # Request Handling
//
// [Client.Request] is the single entry point for upstream calls. Two transient
// failure classes are hidden from callers:
//
//  1. Authentication expiry (401): the client performs exactly one token
//     refresh using the credential's refresh token and retries the original
//     request once. A failed refresh surfaces as [AuthError] and is never
//     retried further.
//
//  2. Rate limiting (429): the client sleeps for the server-supplied
//     Retry-After hint (default 1s) plus exponential backoff with jitter and
//     repeats the request, up to a configurable retry cap. Exhausting the cap
//     surfaces as [RateLimitError].
//
// Any other non-success status surfaces as [UpstreamError] carrying the status
// code and a truncated, sanitized body.
//
// # Pagination
//
// [Paginate] walks the linked_partitioning contract (collection + next_href)
// eagerly into a flat slice. Suitable only for bounded collections; the full
// result set is held in memory.
//
// # Credentials
//
// [Credential] pairs an access token with a refresh token. The client never
// persists credentials; after a refresh the pair is replaced in-memory and an
// optional OnRefresh hook lets the caller persist the new pair.
package soundcloud
