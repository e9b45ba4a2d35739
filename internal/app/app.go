// Package app is the application layer between the CLI and the
// notedb domain operations. It constructs all dependencies from
// config, tags every invocation with an operation id for log
// correlation, and manages the log file lifecycle on Close.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/softwarefactory-project/gonotedb/internal/config"
	"github.com/softwarefactory-project/gonotedb/internal/git"
	"github.com/softwarefactory-project/gonotedb/internal/notedb"
)

// App wires the git runner, repository cache and logger together for
// one CLI invocation.
type App struct {
	cfg     *config.Config
	runner  *git.Runner
	logger  *slogAdapter
	logFile *os.File
	opID    string
}

// New creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "CreateAdminUser").
// The caller must call Close when done.
func New(cfg *config.Config, operation string) (*App, error) {
	opID := operation + "-" + uuid.New().String()[:8]
	logger, logFile, err := newLogger(cfg.LogDir, opID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	adapter := &slogAdapter{l: logger}
	runner, err := git.NewRunner(adapter)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("initializing git runner: %w", err)
	}

	return &App{
		cfg:     cfg,
		runner:  runner,
		logger:  adapter,
		logFile: logFile,
		opID:    opID,
	}, nil
}

// Close releases the log file.
func (a *App) Close() error {
	if a.logFile != nil {
		return a.logFile.Close()
	}
	return nil
}

// AllUsersURL resolves the All-Users remote: the explicit flag value
// when given, the configured remote otherwise.
func (a *App) AllUsersURL(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if a.cfg.Remotes.AllUsers != "" {
		return a.cfg.Remotes.AllUsers, nil
	}
	return "", fmt.Errorf("no All-Users URL: pass --all-users or set remotes.all_users in the config")
}

// OpenStore opens (or reuses) the cached clone of the All-Users
// project and returns a Store bound to it.
func (a *App) OpenStore(ctx context.Context, url string) (*notedb.Store, error) {
	repo, err := git.Open(ctx, a.runner, a.cfg.CacheDir, url)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", url, err)
	}
	return notedb.NewStore(repo, a.logger), nil
}

// CreateAdminUser bootstraps the admin account on the All-Users
// project at url.
func (a *App) CreateAdminUser(ctx context.Context, url, email, pubkey, scheme string) error {
	store, err := a.OpenStore(ctx, url)
	if err != nil {
		return err
	}
	return store.CreateAdminUser(ctx, email, pubkey, scheme)
}

// AddAccountExternalID adds gerrit and username external ids binding
// username to accountID.
func (a *App) AddAccountExternalID(ctx context.Context, url, username, accountID string) error {
	store, err := a.OpenStore(ctx, url)
	if err != nil {
		return err
	}
	return store.AddAccountExternalID(ctx, username, accountID)
}

// DeleteUser removes a user's external ids and account ref.
func (a *App) DeleteUser(ctx context.Context, url, name, email string) error {
	store, err := a.OpenStore(ctx, url)
	if err != nil {
		return err
	}
	return store.DeleteUser(ctx, name, email)
}

// DeleteGroup removes a group's ref and its group-names record.
func (a *App) DeleteGroup(ctx context.Context, url, name string) error {
	store, err := a.OpenStore(ctx, url)
	if err != nil {
		return err
	}
	return store.DeleteGroup(ctx, name)
}

// MigrateUsernameScheme rewrites username: ids to the gerrit scheme.
func (a *App) MigrateUsernameScheme(ctx context.Context, url string) (int, error) {
	store, err := a.OpenStore(ctx, url)
	if err != nil {
		return 0, err
	}
	return store.MigrateUsernameScheme(ctx)
}

// MigrateGroupShards re-homes legacy-sharded group refs.
func (a *App) MigrateGroupShards(ctx context.Context, url string) (int, error) {
	store, err := a.OpenStore(ctx, url)
	if err != nil {
		return 0, err
	}
	return store.MigrateGroupShards(ctx)
}

// CauthToKeycloak rewrites gerrit: ids to the keycloak-oauth scheme.
func (a *App) CauthToKeycloak(ctx context.Context, url string) (int, error) {
	store, err := a.OpenStore(ctx, url)
	if err != nil {
		return 0, err
	}
	return store.CauthToKeycloak(ctx)
}

// ListUsers returns one record per account id.
func (a *App) ListUsers(ctx context.Context, url string) ([]notedb.UserRecord, error) {
	store, err := a.OpenStore(ctx, url)
	if err != nil {
		return nil, err
	}
	return store.ListUsers(ctx)
}
