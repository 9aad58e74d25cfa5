package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/firmware-deploy/internal/config"
	"github.com/oshokin/firmware-deploy/internal/console"
	"github.com/oshokin/firmware-deploy/internal/logger"
	"github.com/oshokin/firmware-deploy/internal/process"
	"github.com/oshokin/firmware-deploy/internal/service/deploy"
	"github.com/oshokin/firmware-deploy/internal/version"
)

var (
	errUnknownLogLevel = errors.New("unknown log level")
	errEmptyVersion    = errors.New("version argument is empty")
)

// flags are shared by the root command and its subcommands.
type flags struct {
	// configPath to the configuration YAML file.
	configPath string
	// workDir overrides work_dir from the configuration.
	workDir string
	// logLevel is the minimum level written to stderr.
	logLevel string
	// yes skips the confirmation prompt.
	yes bool
}

// Execute runs the firmware-deploy CLI and exits with non-zero status on error.
func Execute() {
	if err := newRootCommand(os.Stdin, os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand builds the command tree reading answers from in and printing to out.
func newRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	f := new(flags)

	rootCmd := &cobra.Command{
		Use:   "firmware-deploy [version]",
		Short: "Build the firmware and publish it for devices to pick up",
		Long: "Compile the sketch with arduino-cli, copy the image to the published firmware file, " +
			"stamp the version marker, then commit and push both so devices polling the branch update themselves.\n\n" +
			"Without an argument the patch part of the current marker is incremented.",
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(f.logLevel)
			if !ok {
				return fmt.Errorf("%w: %q", errUnknownLogLevel, f.logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var explicit string
			if len(args) > 0 {
				explicit = args[0]
				if explicit == "" {
					return errEmptyVersion
				}
			}

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			cfg, err := f.loadConfig(cmd)
			if err != nil {
				return err
			}

			printer := console.NewPrinter(out)

			var prompter console.Prompter = console.NewLinePrompter(in, out)
			if f.yes {
				prompter = console.Always{}
			}

			options := &deploy.Options{
				Config:   *cfg,
				Version:  explicit,
				Runner:   process.NewExecRunner(),
				Prompter: prompter,
				Printer:  printer,
			}

			_, err = deploy.Run(ctx, options)

			return err
		},
	}

	rootCmd.SetIn(in)
	rootCmd.SetOut(out)

	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&f.configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&f.workDir, "dir", "C", "", "sketch repository directory (overrides work_dir)")
	rootCmd.PersistentFlags().StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "skip the confirmation prompt")

	version.AttachCobraVersionCommand(rootCmd)
	rootCmd.AddCommand(newInitCommand(f), newLastCommand(f))

	return rootCmd
}

// settingsPath is --config when given, otherwise the default file
// inside --dir (or the current directory).
func (f *flags) settingsPath(cmd *cobra.Command) string {
	if cmd.Flags().Changed("config") || f.workDir == "" {
		return f.configPath
	}

	return filepath.Join(f.workDir, f.configPath)
}

// loadConfig reads the settings file. The default file may be absent;
// a path given explicitly with --config must exist.
func (f *flags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg  *config.Config
		err  error
		path = f.settingsPath(cmd)
	)

	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadOrDefault(path)
	}

	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	if f.workDir != "" {
		cfg.WorkDir = f.workDir
	}

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	return cfg, nil
}
