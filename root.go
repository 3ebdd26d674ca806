package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/foldkeep/foldsync/internal/config"
	"github.com/foldkeep/foldsync/internal/store"
)

// version is set at build time via ldflags.
var version = "dev"

// cloudClientID and cloudClientSecret are the default OAuth client
// credentials embedded at build time (spec.md §6 "Environment"), e.g.:
//
//	go build -ldflags "-X main.cloudClientID=... -X main.cloudClientSecret=..."
//
// Client credentials already saved in the profile's keychain entry (a
// successful `auth start` saves the ones it used) take precedence over these.
var (
	cloudClientID     = ""
	cloudClientSecret = ""
)

const databaseFileName = "foldsync.db"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagProfile    string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// CLIContext bundles everything a RunE handler needs: resolved app
// config, logger, and an open database handle. Created once in
// PersistentPreRunE; eliminates redundant setup in every subcommand.
type CLIContext struct {
	Cfg     *config.Config
	Logger  *slog.Logger
	Store   *store.Store
	Profile string // the --profile name; the row may or may not exist yet
}

type cliContextKey struct{}

func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	return cc
}

// mustCLIContext extracts the CLIContext or panics with an actionable
// message. Panics here are always programmer errors: the command tree
// guarantees PersistentPreRunE populates the context before RunE runs.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — PersistentPreRunE did not run")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "foldsync",
		Short:         "Three-way file sync CLI",
		Long:          "Reconciles a local folder, a cloud object store, and a network share against a persisted baseline.",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return bootstrap(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if cc := cliContextFrom(cmd.Context()); cc != nil && cc.Store != nil {
				return cc.Store.Close()
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path (default: OS-specific config dir)")
	cmd.PersistentFlags().StringVar(&flagProfile, "profile", "default", "sync profile name")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newAuthCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newSyncCmd())

	return cmd
}

// bootstrap loads the app config, opens the baseline store, and stashes a
// CLIContext on the command's context. Every command runs it: config and
// sync commands use the store (config commands create the profile row if
// it does not exist yet), while auth commands use only the profile name
// and logger.
func bootstrap(cmd *cobra.Command) error {
	logger := buildLogger(nil)

	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(path, logger)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger = buildLogger(cfg)

	if cfg.DataDir == "" {
		return fmt.Errorf("could not resolve a data directory; set data_dir in the config file")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}

	dbPath := filepath.Join(cfg.DataDir, databaseFileName)

	st, err := store.Open(cmd.Context(), dbPath, logger)
	if err != nil {
		return fmt.Errorf("opening baseline store: %w", err)
	}

	cc := &CLIContext{Cfg: cfg, Logger: logger, Store: st, Profile: flagProfile}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Pass nil for pre-config bootstrap. Config-file log level is
// the baseline; --verbose/--debug/--quiet (mutually exclusive, enforced by
// Cobra) always override it.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	if cfg != nil {
		switch cfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}

	if flagDebug {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if flagJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
