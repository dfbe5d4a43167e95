package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/imusic/internal/services"
	"github.com/desertthunder/imusic/internal/shared"
)

// loginForm is the popup state. In register mode it creates an account instead of logging in.
type loginForm struct {
	username   textinput.Model
	password   textinput.Model
	focus      int
	register   bool
	pending    bool
	certifying bool
	notice     string
	err        string
}

func newLoginForm() *loginForm {
	u := textinput.New()
	u.Placeholder = "username"
	u.CharLimit = 64
	u.Focus()

	p := textinput.New()
	p.Placeholder = "password"
	p.CharLimit = 128
	p.EchoMode = textinput.EchoPassword
	p.EchoCharacter = '•'

	return &loginForm{username: u, password: p}
}

func (f *loginForm) values() (string, string) {
	return f.username.Value(), f.password.Value()
}

func (f *loginForm) toggleFocus() {
	f.focus = (f.focus + 1) % 2
	if f.focus == 0 {
		f.username.Focus()
		f.password.Blur()
	} else {
		f.password.Focus()
		f.username.Blur()
	}
}

func (f *loginForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if f.focus == 0 {
		f.username, cmd = f.username.Update(msg)
	} else {
		f.password, cmd = f.password.Update(msg)
	}
	return cmd
}

// enterRegisterMode follows a successful certification.
func (f *loginForm) enterRegisterMode() {
	f.register = true
	f.certifying = false
	f.err = ""
	f.notice = "Codeforces verified! Choose a username and password"
	f.password.SetValue("")
}

// enterLoginMode follows a successful registration; the username is kept for the login that follows.
func (f *loginForm) enterLoginMode() {
	f.register = false
	f.err = ""
	f.notice = "Account created. Log in to continue"
	f.password.SetValue("")
	if f.focus != 1 {
		f.toggleFocus()
	}
}

func (f *loginForm) view() string {
	var b strings.Builder

	heading := "Log in"
	if f.register {
		heading = "Create account"
	}
	b.WriteString(styles.title.Render(heading))
	b.WriteString("\n")

	if f.notice != "" {
		b.WriteString(styles.ok.Render(f.notice) + "\n\n")
	}

	b.WriteString(f.username.View() + "\n")
	b.WriteString(f.password.View() + "\n\n")

	if f.err != "" {
		b.WriteString(styles.err.Render(f.err) + "\n\n")
	}

	switch {
	case f.certifying:
		b.WriteString(styles.warn.Render("Waiting for Codeforces in your browser... (esc to cancel)"))
	case f.pending:
		b.WriteString(styles.help.Render("Working..."))
	case f.register:
		b.WriteString(styles.help.Render("enter register • tab switch field • esc close"))
	default:
		b.WriteString(styles.help.Render("enter log in • ctrl+t verify with Codeforces to register • tab switch field • esc close"))
	}

	return styles.popup.Render(b.String())
}

// errorText turns an operation error into the sentence shown in the popup.
func errorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrValidation):
		return "Please enter a username and password"
	case errors.Is(err, shared.ErrThirdPartyRequired):
		return "Please verify with Codeforces first"
	case errors.Is(err, shared.ErrTransport):
		return "Network error, please try again later"
	}
	if msg := services.ServerMessage(err); msg != "" {
		return msg
	}
	return err.Error()
}
