package commands

import (
	"fmt"
	"strings"

	"github.com/benvon/smart-habits/internal/database"
	"github.com/benvon/smart-habits/internal/models"
	"github.com/spf13/cobra"
)

// newRatelimitCmd creates the ratelimit configuration command with list and set subcommands.
func newRatelimitCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ratelimit",
		Short: "Manage rate limit configuration",
		Long:  "List or update API rate limits (e.g. 5-S, 100-M). Stored in the database and picked up by running servers on their next reload.",
	}
	cmd.AddCommand(newRatelimitListCmd(opts))
	cmd.AddCommand(newRatelimitSetCmd(opts))
	return cmd
}

func newRatelimitListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored rate limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close(cmd)

			configs, err := s.ratelimits.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list ratelimit configs: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(configs) == 0 {
				fmt.Fprintln(out, "No rate limit configuration in database. Use 'ratelimit set' to add one.")
				return nil
			}
			fmt.Fprintln(out, "Rate limit configuration:")
			for _, c := range configs {
				fmt.Fprintf(out, "  %s: %s\n", c.ConfigKey, c.Rate)
			}
			return nil
		},
	}
}

func newRatelimitSetCmd(opts *globalOptions) *cobra.Command {
	var rate, key string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Set a rate limit",
		Long:  "Update a rate limit (e.g. 5-S, 100-M, 1000-H). Stored in the database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			rate = strings.TrimSpace(rate)
			if rate == "" {
				return fmt.Errorf("--rate is required (e.g. 5-S, 100-M)")
			}
			s, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close(cmd)

			c := &models.RatelimitConfig{ConfigKey: key, Rate: rate}
			if err := s.ratelimits.Set(cmd.Context(), c); err != nil {
				return fmt.Errorf("set ratelimit config: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Rate limit configuration updated.")
			return nil
		},
	}
	cmd.Flags().StringVar(&rate, "rate", "", "Rate (e.g. 5-S, 100-M, 1000-H) (required)")
	cmd.Flags().StringVar(&key, "key", database.DefaultRatelimitConfigKey, "Config key")
	return cmd
}
