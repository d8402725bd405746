package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/benvon/smart-habits/internal/models"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *globalOptions) *cobra.Command {
	var (
		userRef string
		asOf    string
		weekly  bool
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print a user's statistics",
		Long:  "Compute statistics from stored tasks and records. --as-of defaults to today in HABITS_TIMEZONE.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close(cmd)

			user, err := s.resolveUser(ctx, userRef)
			if err != nil {
				return err
			}
			svc := s.service()

			date := svc.Today()
			if asOf != "" {
				if date, err = models.ParseDate(asOf); err != nil {
					return fmt.Errorf("invalid --as-of: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if weekly {
				w, err := svc.Weekly(ctx, user.ID, date)
				if err != nil {
					return fmt.Errorf("failed to compute weekly stats: %w", err)
				}
				if asJSON {
					return writeJSON(out, w)
				}
				return printWeekly(out, w)
			}

			stats, err := svc.Stats(ctx, user.ID, date)
			if err != nil {
				return fmt.Errorf("failed to compute stats: %w", err)
			}
			if asJSON {
				return writeJSON(out, stats)
			}
			fmt.Fprintf(out, "Statistics for %s as of %s:\n", user.Email, date)
			fmt.Fprintf(out, "  Completed:       %d / %d\n", stats.CompletedTasks, stats.TotalTasks)
			fmt.Fprintf(out, "  Completion rate: %d%%\n", stats.CompletionRate)
			fmt.Fprintf(out, "  Current streak:  %d\n", stats.CurrentStreak)
			fmt.Fprintf(out, "  Longest streak:  %d\n", stats.LongestStreak)
			fmt.Fprintf(out, "  Days tracked:    %d\n", stats.TotalDays)
			return nil
		},
	}
	cmd.Flags().StringVar(&userRef, "user", "", "User id or email (required)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "Last date included, YYYY-MM-DD")
	cmd.Flags().BoolVar(&weekly, "weekly", false, "Print the seven day breakdown ending at --as-of")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func printWeekly(out io.Writer, w models.WeeklyStats) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tCOMPLETED\tSETTLED\tPENDING")
	for _, d := range w.Days {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", d.Date, d.Completed, d.Total, d.Pending)
	}
	fmt.Fprintf(tw, "TOTAL\t%d\t%d\t\n", w.CompletedTasks, w.TotalTasks)
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "Completion rate: %d%%\n", w.CompletionRate)
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
