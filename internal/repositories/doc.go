// Package repositories implements SQLite persistence for client-side state.
//
// Key Implementations:
//   - [LocalStorage] : string key/value storage, the durable analogue of browser localStorage
//   - [SessionRepository] : the persisted login tuple, stored in LocalStorage under fixed keys
//   - [HistoryRepository] : local play history
//
// Multi-key writes go through [WithTx] so a session is never half-written.
package repositories
