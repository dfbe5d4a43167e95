package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/imusic/internal/shared"
)

// AuthLogin logs in with --username and --password and saves the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	a, err := r.newApp(nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	id, err := a.Session.Login(ctx, cmd.String("username"), cmd.String("password"))
	if err != nil {
		return err
	}

	return r.writePlain("✓ Logged in as %s\n", id.Username)
}

// AuthLogout forgets the saved session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	a, err := r.newApp(nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Session.Logout(ctx)
	return r.writePlain("✓ Logged out\n")
}

// AuthStatus replays the saved credentials against the server.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	a, err := r.newApp(nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	r.logger.Info("checking saved session", "server", r.config.API.BaseURL)

	id := a.Session.Restore(ctx)
	if id == nil {
		return r.writePlain("✗ Not logged in\n")
	}

	r.writePlain("✓ Logged in as %s\n", id.Username)
	r.writePlain("Server: %s\n", r.config.API.BaseURL)
	return nil
}

// AuthRegister verifies the user with Codeforces and then creates the account.
//
// Both steps share one session manager since a verification does not outlive the process.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	username, password := cmd.String("username"), cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or IMUSIC_PASSWORD is required", shared.ErrMissingArgument)
	}

	a, err := r.newApp(nil, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	r.writePlain("Waiting for Codeforces verification...\n")
	if err := a.Session.AuthorizeThirdParty(ctx); err != nil {
		return err
	}
	r.writePlain("✓ Codeforces verified\n")

	if err := a.Session.Register(ctx, username, password); err != nil {
		return err
	}

	r.writePlain("✓ Account %s created\n", username)
	r.writePlain("Run 'imusic auth login -u %s' to log in\n", username)
	return nil
}
