package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/outpost/internal/domain"
)

func newListCmd(s *session) *cobra.Command {
	var (
		f      domain.Filter
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registry entries",
		Long: `List registry entries in stored order.

Examples:
  outpost list
  outpost list --type container --status running
  outpost list --search nas --json | jq '.[].host'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			entries, err := s.app.Registry().List(cmd.Context(), f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				_, err := fmt.Fprintln(out, "No entries found.")
				return err
			}
			return writeTable(out, entries)
		},
	}

	cmd.Flags().StringVar(&f.Kind, "type", "", "only entries of this type (container, virtual-machine, stack, service, share, game-server, other)")
	cmd.Flags().StringVar(&f.Status, "status", "", "only entries with this status (running, stopped, unknown)")
	cmd.Flags().StringVar(&f.Search, "search", "", "case-insensitive text matched against every field")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print entries as a JSON array")

	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, entries []domain.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tHOST\tTYPE\tSTATUS\tPORTS\tNOTE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(e.ID), e.Name, e.Host, e.Kind, e.Status, e.Ports, e.Note)
	}
	return tw.Flush()
}

// shortID keeps enough of a uuid to address it with toggle and remove.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
