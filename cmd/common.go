package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/grovetools/livesync/cli"
	"github.com/grovetools/livesync/config"
	"github.com/grovetools/livesync/internal/configwatch"
	"github.com/grovetools/livesync/internal/engine"
	"github.com/grovetools/livesync/logging"
	"github.com/grovetools/livesync/pkg/api"
	"github.com/grovetools/livesync/pkg/connection"
	"github.com/grovetools/livesync/pkg/store"
	"github.com/grovetools/livesync/pkg/visibility"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// setup loads the configuration and applies its logging section.
func setup(cmd *cobra.Command) (*config.Config, string, cli.CommandOptions, error) {
	opts := cli.GetOptions(cmd)
	cfg, path, err := cli.LoadConfig(opts)
	if err != nil {
		return nil, "", opts, err
	}
	if err := cli.ApplyLogging(cfg, opts); err != nil {
		return nil, "", opts, err
	}
	return cfg, path, opts, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newEngine wires the store, the API client and the push channel from cfg.
func newEngine(cfg *config.Config, vis visibility.Source) (*engine.Engine, error) {
	client, err := api.NewClient(api.Options{
		BaseURL:           cfg.APIBaseURL(),
		RequestsPerSecond: cfg.Service.RequestsPerSecond,
		Burst:             cfg.Service.Burst,
		Logger:            logging.NewLogger("api"),
	})
	if err != nil {
		return nil, err
	}

	return engine.New(store.New(), client, engine.Config{
		Location: connection.StaticLocation{
			ServiceURL: cfg.Service.URL,
			Origin:     cfg.Service.Origin,
		},
		Reconnect:         cfg.ReconnectPolicy(),
		HeartbeatInterval: cfg.HeartbeatInterval(),
		Cadences:          cfg.Cadences(),
		EventHistoryLimit: cfg.Polling.EventHistoryLimit,
		Visibility:        vis,
	}, logging.NewLogger("engine")), nil
}

// watchConfig re-applies the logging section whenever the config file
// changes. Connection and polling settings are fixed for the process.
func watchConfig(ctx context.Context, path string, opts cli.CommandOptions, logger *logrus.Entry) (func(), error) {
	if path == "" {
		return func() {}, nil
	}
	w, err := configwatch.New(path, 0, func(cfg *config.Config) {
		if err := cli.ApplyLogging(cfg, opts); err != nil {
			logger.WithError(err).Warn("Failed to apply logging config")
			return
		}
		logger.WithField("path", path).Info("Configuration reloaded; connection and polling settings apply on restart")
	}, logger)
	if err != nil {
		return nil, err
	}
	go w.Start(ctx)
	return func() { w.Close() }, nil
}
