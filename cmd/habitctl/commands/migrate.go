package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// open migrates
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close(cmd)
			fmt.Fprintf(cmd.OutOrStdout(), "Database schema is up to date (%s).\n", s.db.Dialect())
			return nil
		},
	}
}
