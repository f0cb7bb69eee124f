package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/flowmaster/internal/models"
	"github.com/desertthunder/flowmaster/internal/repositories"
	"github.com/desertthunder/flowmaster/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges a username or email and password for a session token and stores it.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := models.Credentials{Username: cmd.String("username"), Password: cmd.String("password")}
	if creds.Password == "" {
		return fmt.Errorf("%w: --password or FLOWMASTER_PASSWORD is required", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	r.logger.Info("logging in", "username", creds.Username)
	if !r.session.Login(ctx, creds) {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, r.session.LastError())
	}
	if err := r.sessionKept(); err != nil {
		return err
	}

	return r.writePlain("✓ Logged in as %s\n", displayName(r.session.User(), creds.Username))
}

// AuthRegister creates an account and logs in with it.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	reg := models.Registration{
		Email:    cmd.String("email"),
		Username: cmd.String("username"),
		Password: cmd.String("password"),
	}
	if reg.Password == "" {
		return fmt.Errorf("%w: --password or FLOWMASTER_PASSWORD is required", shared.ErrMissingArgument)
	}
	if err := r.open(); err != nil {
		return err
	}

	r.logger.Info("registering", "username", reg.Username, "email", reg.Email)
	if !r.session.Register(ctx, reg) {
		return fmt.Errorf("%w: %s", shared.ErrAuthFailed, r.session.LastError())
	}
	if err := r.sessionKept(); err != nil {
		return err
	}

	return r.writePlain("✓ Registered and logged in as %s\n", displayName(r.session.User(), reg.Username))
}

// sessionKept reports an error when the server rejected the new token while loading the profile.
func (r *Runner) sessionKept() error {
	if r.session.IsAuthenticated() {
		return nil
	}
	return fmt.Errorf("%w: token rejected right after sign-in: %s", shared.ErrNotAuthenticated, r.session.LastError())
}

// AuthLogout forgets the stored token. Logging out without a session is not an error.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}
	r.session.Logout()
	return r.writePlain("✓ Logged out\n")
}

type whoami struct {
	User      *models.User `json:"user"`
	ExpiresAt *time.Time   `json:"expires_at,omitempty"`
	SavedAt   *time.Time   `json:"saved_at,omitempty"`
}

// AuthWhoami revalidates the stored token and shows who it belongs to.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(); err != nil {
		return err
	}

	r.session.FetchUserProfile(ctx)
	if !r.session.IsAuthenticated() {
		return fmt.Errorf("%w: session expired, please log in again", shared.ErrNotAuthenticated)
	}
	if msg := r.session.LastError(); msg != "" && r.session.User() == nil {
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, msg)
	}

	info := whoami{User: r.session.User()}
	if exp, ok := r.session.ExpiresAt(); ok {
		info.ExpiresAt = &exp
	}
	if repo, ok := r.tokens.(*repositories.TokenRepository); ok {
		if at, found, err := repo.SavedAt(); err != nil {
			r.logger.Warn("failed to read token timestamp", "error", err)
		} else if found {
			info.SavedAt = &at
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(info, true)
	}

	r.writePlainHeader("Session")
	r.writePlain("User:     %s\n", displayName(info.User, "unknown"))
	if info.User != nil && info.User.Email != "" {
		r.writePlain("Email:    %s\n", info.User.Email)
	}
	if info.ExpiresAt != nil {
		r.writePlain("Expires:  %s (%s)\n", info.ExpiresAt.Local().Format(time.RFC1123), until(*info.ExpiresAt))
	}
	if info.SavedAt != nil {
		r.writePlain("Saved:    %s\n", info.SavedAt.Local().Format(time.RFC1123))
	}
	return nil
}

func displayName(u *models.User, fallback string) string {
	if u == nil || u.Username == "" {
		return fallback
	}
	return u.Username
}

func until(t time.Time) string {
	d := time.Until(t).Round(time.Minute)
	if d <= 0 {
		return "expired"
	}
	return "in " + d.String()
}
