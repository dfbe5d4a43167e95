package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/desertthunder/imusic/internal/app"
	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/notify"
	"github.com/desertthunder/imusic/internal/shared"
)

const (
	toastLifetime = 3 * time.Second
	tickInterval  = 250 * time.Millisecond
	seekStep      = 5.0
	volumeStep    = 0.05
	maxToasts     = 4
	// chrome is the number of lines around the list: header, tabs, input, player bar, help.
	chrome = 9
)

type toast struct {
	id int
	n  notify.Notification
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	app  *app.App
	sub  *notify.Subscription
	keys keyMap
	help help.Model

	width    int
	height   int
	view     app.View
	identity *models.Identity

	search    textinput.Model
	searching bool
	results   list.Model
	favorites list.Model
	rows      *rowState
	favTracks []models.Track

	playback models.PlaybackState
	busy     bool
	spinner  spinner.Model

	toasts    []toast
	nextToast int

	login *loginForm
}

// NewModel creates a new TUI model. Notifications are read from sub until it is cancelled.
func NewModel(ctx context.Context, a *app.App, sub *notify.Subscription) *Model {
	search := textinput.New()
	search.Placeholder = "Search by title or artist"
	search.Prompt = "🔍 "
	search.CharLimit = 128

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.info

	rows := &rowState{favorites: map[string]bool{}}
	return &Model{
		ctx:       ctx,
		app:       a,
		sub:       sub,
		keys:      newKeyMap(),
		help:      help.New(),
		search:    search,
		results:   newTrackList(rows),
		favorites: newTrackList(rows),
		rows:      rows,
		spinner:   sp,
	}
}

// Init restores the session, runs the initial search, and starts the background loops.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.start(),
		m.waitForNotification(),
		m.tick(),
		m.spinner.Tick,
	)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.login != nil {
			return m.handleLoginKeys(msg)
		}
		if m.searching {
			return m.handleSearchKeys(msg)
		}
		return m.handleListKeys(msg)

	case startedMsg:
		m.identity = msg.identity
		m.setResults(m.app.Results.Tracks())
		m.syncFavorites()
		return m, nil

	case searchDoneMsg:
		if msg.applied {
			m.setResults(msg.tracks)
		}
		return m, nil

	case favoritesChangedMsg:
		m.view = m.app.View()
		m.identity = m.app.Session.Identity()
		m.syncFavorites()
		if errors.Is(msg.err, shared.ErrAuthRequired) {
			m.openLogin()
		}
		return m, nil

	case playDoneMsg:
		m.playback = m.app.Playback.State()
		m.syncRows()
		return m, nil

	case authDoneMsg:
		return m.handleAuthDone(msg)

	case notificationMsg:
		return m, tea.Batch(m.pushToast(notify.Notification(msg)), m.waitForNotification())

	case toastExpiredMsg:
		m.dropToast(msg.id)
		return m, nil

	case tickMsg:
		m.playback = m.app.Playback.State()
		m.busy = m.app.Busy.Active()
		m.identity = m.app.Session.Identity()
		m.syncFavorites()
		return m, m.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		next := app.ViewFavorites
		if m.view == app.ViewFavorites {
			next = app.ViewSearch
		}
		m.view = next
		return m, m.setView(next)
	case key.Matches(msg, m.keys.search):
		if m.view != app.ViewSearch {
			m.view = app.ViewSearch
			m.app.SetView(m.ctx, app.ViewSearch)
		}
		m.searching = true
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.play):
		if t, ok := m.selected(); ok {
			return m, m.play(t)
		}
		return m, nil
	case key.Matches(msg, m.keys.pause):
		m.app.Playback.TogglePlayPause()
		m.playback = m.app.Playback.State()
		return m, nil
	case key.Matches(msg, m.keys.next):
		return m, m.step(m.app.Playback.Next)
	case key.Matches(msg, m.keys.previous):
		return m, m.step(m.app.Playback.Previous)
	case key.Matches(msg, m.keys.forward):
		m.app.Playback.Seek(m.app.Playback.State().PositionSeconds + seekStep)
		return m, nil
	case key.Matches(msg, m.keys.rewind):
		m.app.Playback.Seek(m.app.Playback.State().PositionSeconds - seekStep)
		return m, nil
	case key.Matches(msg, m.keys.louder):
		m.app.Playback.SetVolume(m.app.Playback.State().Volume + volumeStep)
		m.playback = m.app.Playback.State()
		return m, nil
	case key.Matches(msg, m.keys.quieter):
		m.app.Playback.SetVolume(m.app.Playback.State().Volume - volumeStep)
		m.playback = m.app.Playback.State()
		return m, nil
	case key.Matches(msg, m.keys.favorite):
		if t, ok := m.selected(); ok {
			return m, m.addFavorite(t)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if t, ok := m.selected(); ok && m.view == app.ViewFavorites {
			return m, m.removeFavorite(t)
		}
		return m, nil
	case key.Matches(msg, m.keys.playAll):
		return m, m.playAll()
	case key.Matches(msg, m.keys.login):
		if m.identity == nil {
			m.openLogin()
		}
		return m, nil
	case key.Matches(msg, m.keys.logout):
		if m.identity != nil {
			return m, m.logout()
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.view == app.ViewFavorites {
		m.favorites, cmd = m.favorites.Update(msg)
	} else {
		m.results, cmd = m.results.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.searching = false
		m.search.Blur()
		return m, m.runSearch(m.search.Value())
	case tea.KeyEsc:
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	return m, cmd
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.login
	switch msg.String() {
	case "esc":
		m.closeLogin()
		return m, nil
	case "tab", "shift+tab", "up", "down":
		f.toggleFocus()
		return m, nil
	case "ctrl+t":
		if f.register || f.pending {
			return m, nil
		}
		f.pending, f.certifying, f.err = true, true, ""
		return m, m.certify()
	case "enter":
		if f.pending {
			return m, nil
		}
		f.pending, f.err = true, ""
		user, pass := f.values()
		if f.register {
			return m, m.register(user, pass)
		}
		return m, m.doLogin(user, pass)
	}
	return m, f.update(msg)
}

func (m *Model) handleAuthDone(msg authDoneMsg) (tea.Model, tea.Cmd) {
	f := m.login
	if f == nil {
		return m, nil
	}
	f.pending = false

	switch msg.action {
	case actionCertify:
		f.certifying = false
		if msg.err != nil {
			if !errors.Is(msg.err, shared.ErrAuthCancelled) {
				f.err = errorText(msg.err)
			}
			return m, nil
		}
		f.enterRegisterMode()
	case actionRegister:
		if msg.err != nil {
			f.err = errorText(msg.err)
			return m, nil
		}
		f.enterLoginMode()
	case actionLogin:
		if msg.err != nil {
			f.err = errorText(msg.err)
			return m, nil
		}
		m.identity = m.app.Session.Identity()
		m.login = nil
	}
	return m, nil
}

func (m *Model) openLogin() {
	if m.login == nil {
		m.login = newLoginForm()
	}
}

// closeLogin dismisses the popup and abandons a pending certification.
func (m *Model) closeLogin() {
	if m.login != nil && m.login.certifying {
		m.app.Session.CancelThirdParty()
	}
	m.login = nil
}

func (m *Model) selected() (models.Track, bool) {
	l := m.results
	if m.view == app.ViewFavorites {
		l = m.favorites
	}
	item, ok := l.SelectedItem().(trackItem)
	if !ok {
		return models.Track{}, false
	}
	return item.track, true
}

func (m *Model) setResults(tracks []models.Track) {
	m.results.SetItems(toItems(tracks))
	m.results.Select(0)
}

// syncFavorites reloads the favorites list when the library changed.
func (m *Model) syncFavorites() {
	tracks := m.app.Favorites.Tracks()
	if !sameTracks(tracks, m.favTracks) {
		m.favTracks = tracks
		idx := m.favorites.Index()
		m.favorites.SetItems(toItems(tracks))
		if idx >= len(tracks) {
			idx = max(len(tracks)-1, 0)
		}
		m.favorites.Select(idx)
	}
	m.syncRows()
}

func (m *Model) syncRows() {
	favs := make(map[string]bool, len(m.favTracks))
	for _, t := range m.favTracks {
		favs[t.Key()] = true
	}
	m.rows.favorites = favs
	m.rows.playingKey = ""
	if m.playback.Current != nil {
		m.rows.playingKey = m.playback.Current.Key()
	}
}

func sameTracks(a, b []models.Track) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *Model) pushToast(n notify.Notification) tea.Cmd {
	id := m.nextToast
	m.nextToast++
	m.toasts = append(m.toasts, toast{id: id, n: n})
	if len(m.toasts) > maxToasts {
		m.toasts = m.toasts[len(m.toasts)-maxToasts:]
	}
	return tea.Tick(toastLifetime, func(time.Time) tea.Msg { return toastExpiredMsg{id: id} })
}

func (m *Model) dropToast(id int) {
	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if t.id != id {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
}

func (m *Model) resize() {
	h := max(m.height-chrome, 3)
	w := max(m.width-2, 20)
	m.results.SetSize(w, h)
	m.favorites.SetSize(w, h)
	m.search.Width = max(w-4, 10)
	m.help.Width = m.width
}

// Commands

func (m *Model) start() tea.Cmd {
	return func() tea.Msg {
		return startedMsg{identity: m.app.Start(m.ctx)}
	}
}

func (m *Model) waitForNotification() tea.Cmd {
	if m.sub == nil {
		return nil
	}
	sub := m.sub
	return func() tea.Msg {
		select {
		case n := <-sub.C:
			return notificationMsg(n)
		case <-sub.Done():
			return nil
		}
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) runSearch(query string) tea.Cmd {
	return func() tea.Msg {
		tracks, applied := m.app.Search(m.ctx, query)
		return searchDoneMsg{tracks: tracks, applied: applied}
	}
}

func (m *Model) setView(v app.View) tea.Cmd {
	return func() tea.Msg {
		m.app.SetView(m.ctx, v)
		return favoritesChangedMsg{}
	}
}

func (m *Model) play(t models.Track) tea.Cmd {
	return func() tea.Msg {
		return playDoneMsg{err: m.app.Playback.Play(m.ctx, t)}
	}
}

func (m *Model) step(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return playDoneMsg{err: fn(m.ctx)}
	}
}

func (m *Model) playAll() tea.Cmd {
	return func() tea.Msg {
		return playDoneMsg{err: m.app.PlayAll(m.ctx)}
	}
}

func (m *Model) addFavorite(t models.Track) tea.Cmd {
	return func() tea.Msg {
		return favoritesChangedMsg{err: m.app.Favorites.Add(m.ctx, t)}
	}
}

func (m *Model) removeFavorite(t models.Track) tea.Cmd {
	return func() tea.Msg {
		return favoritesChangedMsg{err: m.app.Favorites.Remove(m.ctx, t)}
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		m.app.Session.Logout(m.ctx)
		return favoritesChangedMsg{}
	}
}

func (m *Model) doLogin(user, pass string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.app.Session.Login(m.ctx, user, pass)
		return authDoneMsg{action: actionLogin, err: err}
	}
}

func (m *Model) register(user, pass string) tea.Cmd {
	return func() tea.Msg {
		return authDoneMsg{action: actionRegister, err: m.app.Session.Register(m.ctx, user, pass)}
	}
}

func (m *Model) certify() tea.Cmd {
	return func() tea.Msg {
		return authDoneMsg{action: actionCertify, err: m.app.Session.AuthorizeThirdParty(m.ctx)}
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	sections := []string{m.renderHeader()}

	switch {
	case m.login != nil:
		sections = append(sections, lipgloss.Place(max(m.width, 40), max(m.height-chrome, 12), lipgloss.Center, lipgloss.Center, m.login.view()))
	case m.view == app.ViewFavorites:
		sections = append(sections, m.renderFavorites())
	default:
		sections = append(sections, m.search.View(), m.renderList(m.results, "No songs yet. Press / to search"))
	}

	sections = append(sections, m.renderPlayer(), m.renderToasts(), m.help.ShortHelpView(m.keys.ShortHelp()))
	return strings.Join(sections, "\n")
}

func (m *Model) renderHeader() string {
	search, favs := styles.tab.Render("Search"), styles.tab.Render("Favorites")
	if m.view == app.ViewFavorites {
		favs = styles.tabOn.Render("Favorites")
	} else {
		search = styles.tabOn.Render("Search")
	}

	user := styles.help.Render("not logged in • L to log in")
	if m.identity != nil {
		user = styles.ok.Render("👤 "+m.identity.Username) + styles.help.Render("  O to log out")
	}

	busy := "  "
	if m.busy {
		busy = m.spinner.View()
	}

	return fmt.Sprintf("%s %s  %s%s   %s", styles.selected.Render("🎵 IMusic"), busy, search, favs, user)
}

func (m *Model) renderFavorites() string {
	if m.identity == nil {
		return styles.warn.Render("Log in to see your favorites (press L)")
	}
	stats := styles.help.Render(fmt.Sprintf("%d songs • %s total • a to play all",
		m.app.Favorites.Len(), shared.FormatDuration(m.app.Favorites.TotalSeconds())))
	return stats + "\n" + m.renderList(m.favorites, "No favorites yet. Press f on a search result to add one")
}

func (m *Model) renderList(l list.Model, empty string) string {
	if len(l.Items()) == 0 {
		return styles.help.Render(empty)
	}
	return l.View()
}

func (m *Model) renderPlayer() string {
	st := m.playback
	if st.Current == nil {
		return styles.help.Render("Nothing playing")
	}

	icon := "⏸"
	if st.IsPlaying {
		icon = "▶"
	}
	title := runewidth.Truncate(st.Current.Title+" - "+st.Current.Artist, max(m.width/2, 20), "…")
	times := fmt.Sprintf("%s / %s", shared.FormatDuration(int(st.PositionSeconds)), shared.FormatDuration(int(st.DurationSeconds)))
	return fmt.Sprintf("%s %s  %s %s  vol %d%%", icon, styles.selected.Render(title), progressBar(st.Progress(), 20), times, int(st.Volume*100+0.5))
}

func progressBar(progress float64, width int) string {
	filled := int(progress * float64(width))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat("-", width-filled) + "]"
}

func (m *Model) renderToasts() string {
	lines := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		lines = append(lines, styles.level(t.n.Level).Render("• "+t.n.Message))
	}
	return strings.Join(lines, "\n")
}
