package commands

import (
	"github.com/teranos/qntx-astro/am"
	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/internal/app"
	"github.com/teranos/qntx-astro/logger"
)

// openApp loads and validates configuration, then wires the pipeline
func openApp(opts app.Options) (*app.App, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return app.New(cfg, opts, logger.Logger)
}
