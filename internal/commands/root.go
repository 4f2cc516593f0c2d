package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hermitpopcorn/negi-ms/internal/buildinfo"
	"github.com/hermitpopcorn/negi-ms/internal/config"
	"github.com/hermitpopcorn/negi-ms/internal/logger"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	envFile    string

	cfg *config.Config
	log zerolog.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:     "negi",
		Short:   "Extract transactions from mail and keep the spreadsheet tidy",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	rootCmd.AddCommand(
		newIngestCommand(a),
		newDuplifinderCommand(a),
		newMarksmanCommand(a),
		newClerkCommand(a),
		newVersionCommand(),
	)

	return rootCmd
}

// load reads configuration and installs the logger into the command context.
func (a *app) load(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(a.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	log, err := logger.NewWithLevel(cmd.ErrOrStderr(), cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}

	a.cfg = cfg
	a.log = log

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logger.WithContext(ctx, log))
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		// Printing the version never needs configuration.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "negi %s\n", buildinfo.String())
			return err
		},
	}
}
