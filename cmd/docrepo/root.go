package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-document-repository/config"
)

// defaultConfigFiles are tried in order when --config is not given.
var defaultConfigFiles = []string{"docrepo.yaml", "docrepo.yml", "config/docrepo.yaml"}

// app carries state shared by the subcommands once the root has loaded it.
type app struct {
	configPath string
	envFile    string
	cfg        *config.AppConfig
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "docrepo",
		Short: "Document repository with automatic version detection",
		Long: `docrepo stores uploaded documents per user and detects when an upload is a
new version of one of the user's existing documents, based on the similarity
of the extracted text and of the title.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.ErrOrStderr())
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML config file (default: docrepo.yaml if present)")
	cmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	cmd.AddCommand(
		newServeCmd(a),
		newExtractCmd(a),
		newCompareCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// load reads the dotenv file, the config file and sets up logging.
func (a *app) load(logOutput io.Writer) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", a.envFile, err)
		}
	}

	path := a.configPath
	if path == "" {
		found, err := config.FindConfigFile(defaultConfigFiles...)
		if err != nil && !errors.Is(err, config.ErrNoConfigFile) {
			return err
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, logOutput)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	slog.SetDefault(logger)
	if path != "" {
		logger.Debug("configuration loaded", "path", path)
	}
	return nil
}

// newLogger builds the slog logger described by cfg.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
	}

	opts := &slog.HandlerOptions{Level: level}
	switch cfg.Format {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		// No config needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "docrepo %s\n", version)
			fmt.Fprintf(cmd.OutOrStdout(), "Commit: %s\n", commit)
			fmt.Fprintf(cmd.OutOrStdout(), "Built:  %s\n", date)
		},
	}
}
