package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ersonp/influence-tracker/internal/application/handlers"
	"github.com/ersonp/influence-tracker/internal/domain/services"
	"github.com/ersonp/influence-tracker/internal/infrastructure/config"
	"github.com/ersonp/influence-tracker/internal/infrastructure/httpapi"
	"github.com/ersonp/influence-tracker/internal/infrastructure/kvstore/cached"
	"github.com/ersonp/influence-tracker/internal/infrastructure/kvstore/sqlite"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config  *config.Config
	Archive *handlers.ArchiveHandler
	Submit  *handlers.SubmitHandler
	Admin   *handlers.AdminHandler
	Import  *handlers.ImportHandler
}

// internalDeps holds all dependencies including low-level components.
// Used internally by helper functions.
type internalDeps struct {
	Deps
	repo *services.ContentRepository
	auth *services.AuthService
}

// withDeps loads config and builds dependencies, then calls the provided function.
// It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		return fn(&d.Deps)
	})
}

// withInternalDeps provides access to all dependencies including low-level components.
func withInternalDeps(ctx context.Context, fn func(*internalDeps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := sqlite.NewRepository(cfg.Store)
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}

	// Closing the cache closes the database too.
	store := cached.New(db, cfg.Store.CacheTTL)
	defer store.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	repo := services.NewContentRepository(store)
	if _, err := services.NewSeedService(repo).SeedIfEmpty(ctx); err != nil {
		return fmt.Errorf("seeding demo content: %w", err)
	}

	auth := services.NewAuthService(cfg.Admin.Password, cfg.Admin.SessionTTL)
	moderation := services.NewModerationService(repo, auth, db)

	deps := &internalDeps{
		Deps: Deps{
			Config:  cfg,
			Archive: handlers.NewArchiveHandler(repo),
			Submit:  handlers.NewSubmitHandler(repo),
			Admin:   handlers.NewAdminHandler(auth, moderation),
			Import:  handlers.NewImportHandler(services.NewImportService(repo)),
		},
		repo: repo,
		auth: auth,
	}

	return fn(deps)
}

// withAdmin unlocks an admin session with password and calls fn with its
// token. The session is ended when fn returns.
func withAdmin(ctx context.Context, password string, fn func(token string, admin *handlers.AdminHandler) error) error {
	if password == "" {
		return errors.New("admin password is required (use --password)")
	}

	return withDeps(ctx, func(d *Deps) error {
		session, err := d.Admin.HandleUnlock(password)
		if err != nil {
			return err
		}
		defer d.Admin.HandleLock(session.Token)

		return fn(session.Token, d.Admin)
	})
}

// withServer builds the HTTP server over the shared dependencies. A non-empty
// addr overrides server.addr.
func withServer(ctx context.Context, addr string, fn func(*httpapi.Server, *config.Config) error) error {
	return withInternalDeps(ctx, func(d *internalDeps) error {
		if addr != "" {
			d.Config.Server.Addr = addr
		}

		srv := httpapi.NewServer(httpapi.Deps{
			Repo:    d.repo,
			Auth:    d.auth,
			Archive: d.Archive,
			Submit:  d.Submit,
			Admin:   d.Admin,
		}, d.Config.Server)
		defer srv.Close()

		return fn(srv, d.Config)
	})
}
