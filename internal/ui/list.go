package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/shared"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Title }
func (i trackItem) Title() string       { return i.track.Title }
func (i trackItem) Description() string {
	desc := i.track.Artist
	if i.track.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album)
	}
	return desc
}

func toItems(tracks []models.Track) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	return items
}

// rowState is what the delegate needs beyond the item: the playing track and the favorites set.
type rowState struct {
	playingKey string
	favorites  map[string]bool
}

// trackDelegate renders one track per line: markers, title, artist, album, duration.
type trackDelegate struct {
	state *rowState
}

func (d trackDelegate) Height() int                             { return 1 }
func (d trackDelegate) Spacing() int                            { return 0 }
func (d trackDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d trackDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(trackItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderRow(ti.track, d.state, index == m.Index(), m.Width()))
}

func renderRow(t models.Track, st *rowState, selected bool, width int) string {
	cursor, playing, fav := "  ", "  ", "  "
	if selected {
		cursor = "> "
	}
	if st != nil {
		if st.playingKey != "" && st.playingKey == t.Key() {
			playing = "♪ "
		}
		if st.favorites[t.Key()] {
			fav = "♥ "
		}
	}

	duration := shared.FormatDuration(t.DurationSeconds)
	meta := t.Artist
	if t.Album != "" {
		meta += " • " + t.Album
	}

	prefix := cursor + playing + fav
	avail := width - runewidth.StringWidth(prefix) - runewidth.StringWidth(duration) - 1
	if avail < 8 {
		avail = 8
	}

	titleWidth := avail * 3 / 5
	title := runewidth.FillRight(runewidth.Truncate(t.Title, titleWidth, "…"), titleWidth)
	rest := runewidth.Truncate(meta, avail-titleWidth-1, "…")
	line := prefix + title + " " + runewidth.FillRight(rest, avail-titleWidth-1) + " " + duration
	line = strings.TrimRight(line, " ")

	if selected {
		return styles.selected.Render(line)
	}
	return line
}

func newTrackList(st *rowState) list.Model {
	l := list.New(nil, trackDelegate{state: st}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowPagination(true)
	l.DisableQuitKeybindings()
	return l
}
