package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mineralcatalog/docs/schema/openapi"
	"mineralcatalog/internal/config"
	"mineralcatalog/internal/logging"
)

type rootOptions struct {
	configPath string
	addr       string
	logLevel   string
	logFormat  string
	storage    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "mineralcatalog",
		Short: "mineralcatalog serves a searchable catalog of mineral records",
		Long: `mineralcatalog keeps a collection of mineral records in memory and exposes
filtering, search, random pick, CRUD and statistics over HTTP.

Configuration is read from an optional YAML file (--config or
MINERALCATALOG_CONFIG), then MINERALCATALOG_* environment variables, then flags.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.addr, "addr", "", "listen address (overrides server.addr)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "log format: text or json")
	flags.StringVar(&opts.storage, "storage", "", "storage driver: memory, sqlite or postgres")

	root.AddCommand(
		newServeCmd(opts),
		newConfigCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newConfigCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return fmt.Errorf("render config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := openapi.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "mineralcatalog %s (commit %s, built %s, api %s)\n", Version, Commit, BuildDate, api)
			return nil
		},
	}
}

// load resolves the configuration: defaults, file, environment, then the
// flags the user actually set.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = o.addr
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if flags.Changed("storage") {
		cfg.Storage.Driver = o.storage
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command, cfg config.LogConfig) *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Level),
		Format: logging.ParseFormat(cfg.Format),
		Output: cmd.ErrOrStderr(),
	})
}
