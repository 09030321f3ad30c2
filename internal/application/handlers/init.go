// Package handlers contains application use case handlers.
package handlers

import (
	"fmt"

	"github.com/ersonp/influence-tracker/internal/infrastructure/config"
)

// InitHandler handles workspace initialization.
type InitHandler struct{}

// NewInitHandler creates a new init handler.
func NewInitHandler() *InitHandler {
	return &InitHandler{}
}

// InitOptions overrides default configuration values. Zero values keep
// the defaults.
type InitOptions struct {
	AdminPassword string
	Addr          string
	StorePath     string
}

func (o InitOptions) isZero() bool {
	return o == InitOptions{}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath string
	StorePath  string
}

// Handle writes the configuration under basePath. Without overrides the
// commented default file is written.
func (h *InitHandler) Handle(basePath string, opts InitOptions) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("tracker already initialized in %s", basePath)
	}

	if opts.isZero() {
		if err := config.WriteDefault(basePath); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	} else if err := config.Write(basePath, opts.apply(config.Default())); err != nil {
		return nil, fmt.Errorf("writing config: %w", err)
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &InitResult{
		ConfigPath: config.ConfigFilePath(basePath),
		StorePath:  cfg.Store.Path,
	}, nil
}

func (o InitOptions) apply(cfg *config.Config) *config.Config {
	if o.AdminPassword != "" {
		cfg.Admin.Password = o.AdminPassword
	}
	if o.Addr != "" {
		cfg.Server.Addr = o.Addr
	}
	if o.StorePath != "" {
		cfg.Store.Path = o.StorePath
	}
	return cfg
}
