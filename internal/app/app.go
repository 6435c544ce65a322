// Package app wires configuration, storage, logging and the engine into a
// runnable application.
package app

import (
	"context"
	"fmt"
	"path/filepath"

	"sweeper/internal/config"
	"sweeper/internal/database"
	"sweeper/internal/fs"
	"sweeper/internal/mediasource"
	"sweeper/internal/settings"
	"sweeper/internal/sweep"
	"sweeper/internal/vault"
)

// App holds a fully wired service and the resources it owns.
type App struct {
	Config  *config.Config
	Service *sweep.Service
	Logger  sweep.Logger

	closeLog func() error
}

// configPermissions implements sweep.PermissionGate from static config.
type configPermissions struct {
	cfg config.PermissionsConfig
}

var _ sweep.PermissionGate = (*configPermissions)(nil)

func (p *configPermissions) HasScanPermission() bool   { return p.cfg.AllowScan }
func (p *configPermissions) HasDeletePermission() bool { return p.cfg.AllowDelete }

// New loads the config at configPath and wires the full engine.
func New(ctx context.Context, configPath string, verbose bool) (*App, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	ids := sweep.UUIDGenerator{}
	logger, closeLog, err := NewLogger(cfg.LogDir, ids.New()[:8], verbose)
	if err != nil {
		return nil, err
	}

	store, err := database.NewStore(cfg.Database)
	if err != nil {
		closeLog()
		return nil, err
	}

	v, err := vault.New(ctx, cfg.Stash, logger)
	if err != nil {
		store.Close()
		closeLog()
		return nil, err
	}
	if v != nil {
		if err := v.ValidateSetup(); err != nil {
			store.Close()
			closeLog()
			return nil, fmt.Errorf("validating stash: %w", err)
		}
	}

	prefs, err := settings.Open(filepath.Join(cfg.BaseDir, "settings.toml"))
	if err != nil {
		store.Close()
		closeLog()
		return nil, err
	}

	source := mediasource.NewFilesystemSource(cfg.Library.Roots, cfg.Library.Extensions, logger)
	svc := sweep.NewService(store, source, fs.NewManager(), &configPermissions{cfg: cfg.Permissions},
		v, prefs, sweep.RealClock{}, ids, logger)

	return &App{
		Config:   cfg,
		Service:  svc,
		Logger:   logger,
		closeLog: closeLog,
	}, nil
}

// Close shuts the service down and releases the log file.
func (a *App) Close() error {
	err := a.Service.Close()
	if cerr := a.closeLog(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
