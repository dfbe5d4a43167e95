package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/imusic/internal/models"
	"github.com/desertthunder/imusic/internal/notify"
)

// startedMsg reports the result of the startup restore and initial search.
type startedMsg struct {
	identity *models.Identity
}

// searchDoneMsg carries results that are still the latest search.
type searchDoneMsg struct {
	tracks  []models.Track
	applied bool
}

// favoritesChangedMsg asks the model to re-read the favorites list.
type favoritesChangedMsg struct {
	err error
}

// notificationMsg wraps a toast from the bus.
type notificationMsg notify.Notification

// toastExpiredMsg removes the toast with id.
type toastExpiredMsg struct {
	id int
}

// tickMsg drives the player bar.
type tickMsg time.Time

// authDoneMsg reports a login, registration, or certification attempt from the popup.
type authDoneMsg struct {
	action authAction
	err    error
}

type authAction int

const (
	actionLogin authAction = iota
	actionRegister
	actionCertify
)

// playDoneMsg reports the outcome of starting a track.
type playDoneMsg struct {
	err error
}

var (
	_ tea.Msg = startedMsg{}
	_ tea.Msg = notificationMsg{}
)
