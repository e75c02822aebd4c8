package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tendant/media-content/pkg/mediacontent/config"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// componentsBuilder builds the service graph a command runs against.
type componentsBuilder func(ctx context.Context, logger *slog.Logger) (*config.Components, error)

// buildFromEnv reads the same environment as the HTTP server.
func buildFromEnv(ctx context.Context, logger *slog.Logger) (*config.Components, error) {
	serverConfig, err := config.LoadServerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration: %w", err)
	}
	if err := requirePersistentDatabase(serverConfig); err != nil {
		return nil, err
	}
	return serverConfig.Build(ctx, logger)
}

// requirePersistentDatabase rejects the in-memory repository, whose records
// would be gone when the command exits.
func requirePersistentDatabase(cfg *config.ServerConfig) error {
	if cfg.DatabaseType == config.DatabaseMemory {
		return errors.New("mediactl needs a persistent database: set DATABASE_URL to a postgres:// or sqlite:// URL")
	}
	return nil
}

func NewRootCommand() *cobra.Command {
	return newRootCommand(buildFromEnv)
}

func newRootCommand(build componentsBuilder) *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "mediactl",
		Short: "Media content maintenance CLI",
		Long: `Media content maintenance CLI

Runs media synchronization, reconciles content fields and inspects the asset
catalogue. Configuration is read from the same environment variables as the
server (DATABASE_URL, MEDIA_URL, CONTENT_FIELDS, ...).`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	env := &commandEnv{build: build}
	rootCmd.AddCommand(NewSyncCommand(env))
	rootCmd.AddCommand(NewReconcileCommand(env))
	rootCmd.AddCommand(NewSearchCommand(env))
	rootCmd.AddCommand(NewUsageCommand(env))
	rootCmd.AddCommand(NewRemoveCommand(env))

	return rootCmd
}

// commandEnv is shared by all subcommands.
type commandEnv struct {
	build componentsBuilder
}

// components builds the service graph with a logger matching the verbose flag.
func (e *commandEnv) components(cmd *cobra.Command) (*config.Components, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return e.build(cmd.Context(), logger)
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
