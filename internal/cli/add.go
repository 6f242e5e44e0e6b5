package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/outpost/internal/domain"
)

func newAddCmd(s *session) *cobra.Command {
	var name, host, kind, status, users, folders, ports, note string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an entry by hand",
		Long: `Add an entry by hand. Manual entries are trusted: they are appended even when an
entry with the same name, host and type already exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := s.app.Registry().Add(cmd.Context(), domain.RawEntry{
				Name:    domain.LooseString(name),
				Host:    domain.LooseString(host),
				Type:    domain.LooseString(kind),
				Status:  domain.LooseString(status),
				Users:   domain.LooseString(users),
				Folders: domain.LooseString(folders),
				Ports:   domain.LooseString(ports),
				Note:    domain.LooseString(note),
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", e.Name, shortID(e.ID))
			return err
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "entry name (required)")
	cmd.Flags().StringVar(&host, "host", "", "host or address")
	cmd.Flags().StringVar(&kind, "type", "", "entry type (default other)")
	cmd.Flags().StringVar(&status, "status", "", "running, stopped or unknown (default unknown)")
	cmd.Flags().StringVar(&users, "users", "", "who uses it")
	cmd.Flags().StringVar(&folders, "folders", "", "shared paths")
	cmd.Flags().StringVar(&ports, "ports", "", "exposed ports")
	cmd.Flags().StringVar(&note, "note", "", "free text")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}
