package cmd

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/firmware-deploy/internal/console"
	"github.com/oshokin/firmware-deploy/internal/repository/record"
	"github.com/oshokin/firmware-deploy/internal/service/publisher"
)

// newLastCommand prints the record of the most recent build.
func newLastCommand(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "last",
		Short: "Show the last built release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.loadConfig(cmd)
			if err != nil {
				return err
			}

			repo := record.NewFileRepository(record.PathFor(*cfg))

			release, err := repo.Load(cmd.Context())
			if errors.Is(err, record.ErrNotFound) {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "No release built yet (%s)\n", repo.Path())

				return nil
			}

			if err != nil {
				return err
			}

			links := publisher.LinksFor(*cfg)

			rows := [][2]string{
				{"Version", release.Version},
				{"Sketch", release.Sketch},
				{"Board", release.Board},
				{"Artifact", release.Artifact},
				{"Firmware", release.Firmware},
				{"Size", strconv.FormatInt(release.Size, 10) + " bytes"},
				{"SHA-512", release.Checksum},
				{"Built at", release.BuiltAt.Local().Format(time.DateTime)},
				{"Published", strconv.FormatBool(release.Published)},
			}

			if release.Published {
				rows = append(rows,
					[2]string{"Commit", release.CommitMessage},
					[2]string{"Firmware URL", links.Firmware},
					[2]string{"Version URL", links.Version},
				)
			}

			console.NewPrinter(cmd.OutOrStdout()).Table("Last release", rows)

			return nil
		},
	}
}
