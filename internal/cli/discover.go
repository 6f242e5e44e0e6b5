package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/outpost/internal/merge"
)

func newDiscoverCmd(s *session) *cobra.Command {
	var save, refresh, asJSON bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan this host for services",
		Long: `Run the configured discovery adapters (OUTPOST_DISCOVERY_ADAPTERS) and print the
candidates. With --save they are merged into the registry.

Discovery never fails: an unavailable docker daemon or unreadable file yields no
candidates.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scan := s.app.Scan(cmd.Context())
			out := cmd.OutOrStdout()

			if !save && !refresh {
				if asJSON {
					return writeJSON(out, scan)
				}
				if len(scan.Entries) == 0 {
					_, err := fmt.Fprintf(out, "Nothing discovered on %s.\n", scan.Host)
					return err
				}
				return writeTable(out, scan.Entries)
			}

			mode := merge.ModeKeep
			if refresh {
				mode = merge.ModeRefresh
			}
			res, err := s.app.Registry().Merge(cmd.Context(), scan.Entries, mode)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(out, "Discovered %d on %s: %d new, %d refreshed. Total %d.\n",
				len(scan.Entries), scan.Host, res.Added, res.Refreshed, len(res.Entries))
			return err
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "merge the candidates into the registry")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "save, overwriting descriptive fields of entries already present")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the scan as JSON")

	return cmd
}
