package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/qntx-astro/am"
	"github.com/teranos/qntx-astro/errors"
	"github.com/teranos/qntx-astro/internal/app"
	"github.com/teranos/qntx-astro/logger"
	"github.com/teranos/qntx-astro/server"
	"github.com/teranos/qntx-astro/version"
)

// ServeCmd starts the classification HTTP API
var ServeCmd = &cobra.Command{
	Use:     "serve",
	Aliases: []string{"server"},
	Short:   "Start the classification HTTP API",
	Long: `Start the HTTP API: POST /api/classify, POST /api/conversions,
POST /api/convert, GET /api/audit, GET /api/datasets/{dataset}/schema,
GET /health and GET /metrics.

Ctrl+C drains in-flight requests; a second Ctrl+C exits immediately.`,
	RunE: runServe,
}

var (
	serveNoAdvisory bool
	serveDBPath     string
	servePort       int
)

func init() {
	ServeCmd.Flags().BoolVar(&serveNoAdvisory, "no-advisory", false, "Disable the advisory model")
	ServeCmd.Flags().StringVar(&serveDBPath, "db-path", "", "Custom database path (overrides config)")
	ServeCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := am.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if serveDBPath != "" {
		cfg.Database.Path = serveDBPath
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "configuration validation failed")
	}

	a, err := app.New(cfg, app.Options{NoAdvisory: serveNoAdvisory}, logger.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Catalog.Watch && len(cfg.Catalog.Paths) > 0 {
		w, err := am.NewWatcher(logger.Logger.Named("catalog-watcher"), cfg.Catalog.Paths...)
		if err != nil {
			return errors.Wrap(err, "failed to watch domain dictionaries")
		}
		w.OnReload(a.ReloadCatalog)
		w.Start()
		am.SetGlobalWatcher(w)
		defer w.Stop()
	}

	printBanner(cfg, a)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A second signal after draining starts forces an exit
	go func() {
		<-ctx.Done()
		stop()
		force := make(chan os.Signal, 1)
		signal.Notify(force, os.Interrupt, syscall.SIGTERM)
		<-force
		pterm.Warning.Println("\nForce shutdown - exiting immediately")
		os.Exit(1)
	}()

	srv := server.New(a, logger.Logger.Named("server"))
	if err := srv.ListenAndServe(ctx, cfg.Server.Address()); err != nil {
		return err
	}
	pterm.Success.Println("Server stopped cleanly")
	return nil
}

func printBanner(cfg *am.Config, a *app.App) {
	pterm.DefaultHeader.WithFullWidth().Printf("qntx-astro %s", version.Get().Version)
	pterm.Info.Printf("Listening on http://%s\n", cfg.Server.Address())
	pterm.Info.Printf("Dictionaries: %v (%d entries)\n", a.Catalog.Dictionaries(), a.Catalog.Len())
	if a.Gateway.Enabled() {
		pterm.Info.Printf("Advisory model: %s at %s\n", cfg.Advisory.Model, cfg.Advisory.BaseURL)
	} else {
		pterm.Warning.Println("Advisory model disabled; heuristic classification only")
	}
	if a.Store != nil {
		pterm.Info.Printf("Audit database: %s\n", cfg.GetDatabasePath())
	}
	pterm.Println()
}
