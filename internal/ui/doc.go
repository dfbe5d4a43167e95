// Package ui implements the interactive terminal client using bubbletea's Elm architecture.
//
// The screen has two tabs over a shared player bar:
//  1. [app.ViewSearch] : a search box and the latest results
//  2. [app.ViewFavorites] : the user's favorites with a count and total time
//
// A login popup covers the lists while open. It switches to registration after a Codeforces certification,
// and closing it abandons a pending certification.
//
// Notifications arrive on a [notify.Subscription] and are shown as toasts that expire after a few seconds.
// Every backend call runs in a [tea.Cmd], so the model itself never blocks.
package ui
