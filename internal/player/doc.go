// Package player is the audio device behind playback.
//
// [Device] is the contract the playback controller drives. [BeepDevice] implements it on top of
// gopxl/beep: a track is fetched over HTTP into memory, decoded by extension (mp3, flac, wav), and handed to
// the shared speaker. Position updates, the decoded duration, and end of stream are reported through
// [Handlers]. [Mock] is a scriptable stand-in for tests.
package player
