package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/outpost/internal/codec"
	"github.com/MrSnakeDoc/outpost/internal/merge"
)

func newExportCmd(s *session) *cobra.Command {
	var armored bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the registry as a portable payload to stdout",
		Long: `Write the registry as a versioned, timestamped payload to stdout.

Examples:
  outpost export > payload.json
  outpost export --base64 | ssh other-host outpost import`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := s.app.Registry().Entries(cmd.Context())
			if err != nil {
				return err
			}

			p := codec.Export(entries, time.Now())
			if armored {
				return codec.EncodeBase64(cmd.OutOrStdout(), p)
			}
			return codec.Encode(cmd.OutOrStdout(), p)
		},
	}

	cmd.Flags().BoolVar(&armored, "base64", false, "base64-encode the payload for copy and paste")
	return cmd
}

func newImportCmd(s *session) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Merge a payload read from stdin into the registry",
		Long: `Merge a payload read from stdin into the registry.

Accepts the output of export (plain or --base64) and legacy {"standalone": [...]}
payloads. Entries already present are kept as they are unless --refresh is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			decoded, err := codec.Decode(cmd.InOrStdin())
			if err != nil {
				return err
			}

			mode := merge.ModeKeep
			if refresh {
				mode = merge.ModeRefresh
			}
			res, err := s.app.Registry().Merge(cmd.Context(), decoded.Entries, mode)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if refresh {
				_, err = fmt.Fprintf(out, "Imported: %d new, %d refreshed. Total %d.\n", res.Added, res.Refreshed, len(res.Entries))
				return err
			}
			_, err = fmt.Fprintf(out, "Imported: %d new. Total %d.\n", res.Added, len(res.Entries))
			return err
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "overwrite descriptive fields of entries already present")
	return cmd
}
