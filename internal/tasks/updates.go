package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, an [ImportItem] for finished items
}

// Operation phase enumeration
type Phase int

const (
	SearchTracks Phase = iota
	AddFavorites
	Finished
)

func (p Phase) String() string {
	switch p {
	case SearchTracks:
		return "search_tracks"
	case AddFavorites:
		return "add_favorites"
	case Finished:
		return "finished"
	default:
		return ""
	}
}

func searchUpdate(step, total int, q Query) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Searched %q", q.Title),
	}
}

func itemUpdate(step, total int, item ImportItem) ProgressUpdate {
	var msg string
	switch item.Status {
	case StatusAdded:
		msg = fmt.Sprintf("Added %s - %s", item.Track.Title, item.Track.Artist)
	case StatusSkipped:
		msg = fmt.Sprintf("Already in favorites: %s - %s", item.Track.Title, item.Track.Artist)
	case StatusNotFound:
		msg = fmt.Sprintf("No match for %s", item.Query)
	default:
		msg = fmt.Sprintf("Failed to add %s: %v", item.Query, item.Err)
	}
	return ProgressUpdate{Phase: AddFavorites, Step: step, Total: total, Message: msg, Data: item}
}

func finishedUpdate(r *ImportResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Finished,
		Step:    len(r.Items),
		Total:   len(r.Items),
		Message: fmt.Sprintf("Imported %d, skipped %d, not found %d, failed %d", r.Added, r.Skipped, r.NotFound, r.Failed),
	}
}
