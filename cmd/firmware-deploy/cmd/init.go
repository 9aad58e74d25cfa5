package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/firmware-deploy/internal/config"
)

var errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

// newInitCommand writes the default settings so they can be edited.
func newInitCommand(f *flags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := f.settingsPath(cmd)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s: %w", path, errConfigExists)
			}

			// A file inside --dir resolves its own paths against that directory.
			cfg := config.Default()
			if f.workDir != "" && cmd.Flags().Changed("config") {
				cfg.WorkDir = f.workDir
			}

			if err := config.Save(path, &cfg); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	return cmd
}
