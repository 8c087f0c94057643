package cli

import (
	"github.com/grovetools/livesync/config"
	"github.com/grovetools/livesync/logging"
)

// LoggingConfig decodes the "logging" extension of cfg.
func LoggingConfig(cfg *config.Config) (logging.Config, error) {
	var lc logging.Config
	if cfg == nil {
		return lc, nil
	}
	if err := cfg.UnmarshalExtension("logging", &lc); err != nil {
		return logging.Config{}, err
	}
	return lc, nil
}

// ApplyLogging configures every logger from cfg. --verbose raises the
// level to debug regardless of the file.
func ApplyLogging(cfg *config.Config, opts CommandOptions) error {
	lc, err := LoggingConfig(cfg)
	if err != nil {
		return err
	}
	if opts.Verbose {
		lc.Level = "debug"
	}
	logging.Configure(lc)
	return nil
}
