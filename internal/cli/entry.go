package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newToggleCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle ID",
		Short: "Cycle an entry's status (running, stopped, unknown)",
		Long:  `Cycle an entry's status running -> stopped -> unknown -> running. ID may be any unique prefix.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := s.app.Registry().Toggle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", e.Name, e.Status)
			return err
		},
	}
}

func newRemoveCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Delete an entry",
		Long:    `Delete an entry. ID may be any unique prefix.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := s.app.Registry().Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s (%s)\n", e.Name, shortID(e.ID))
			return err
		},
	}
}
