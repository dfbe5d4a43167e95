// Package services is the HTTP transport for the IMusic backend.
//
// # Layers
//
// [APIService] issues raw requests against the configured base URL. Every request
// waits on a shared rate limiter and travels through one [http.Client] whose cookie
// jar keeps the server-side session cookie set by the login endpoint.
//
// [IMusicService] wraps APIService with one method per endpoint and decodes the
// common {success, message} envelope.
//
// # Error Handling
//
// Failures are classified with sentinels from the shared package:
//   - [shared.ErrTransport] : the request never produced a decodable envelope
//   - [shared.ErrApplication] : the server answered success=false; see [APIError]
//
// Callers decide how to surface either; nothing here retries.
package services
