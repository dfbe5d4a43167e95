// Package models defines the domain values shared by the catalog, library, session and playback packages.
//
//   - [Track] : an immutable song record as returned by the catalog
//   - [Identity] : the logged-in user, present only while a session is active
//   - [Session] : the persisted (username, credential, logged-in) tuple
//   - [PlaybackState] : what is loaded, whether it plays, where it is and how loud
//   - [PlayRecord] : one entry of local play history
package models
