package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/benvon/smart-habits/internal/queue"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTagsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Inspect and repair failure tags",
	}
	cmd.AddCommand(newTagsListCmd(opts))
	cmd.AddCommand(newTagsRecountCmd(opts))
	return cmd
}

func newTagsListCmd(opts *globalOptions) *cobra.Command {
	var userRef string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List a user's tags ranked by usage",
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
			tags, err := s.service().ListTags(ctx, user.ID)
			if err != nil {
				return fmt.Errorf("failed to list tags: %w", err)
			}
			if len(tags) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No tags.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tUSAGE")
			for _, t := range tags {
				fmt.Fprintf(tw, "%s\t%s\t%d\n", t.ID, t.Name, t.UsageCount)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&userRef, "user", "", "User id or email (required)")
	return cmd
}

func newTagsRecountCmd(opts *globalOptions) *cobra.Command {
	var (
		userRef string
		now     bool
	)
	cmd := &cobra.Command{
		Use:   "recount",
		Short: "Recompute tag usage counts from failed records",
		Long:  "Enqueue a tag_usage_recount job for the worker, or run the recount inline with --now.",
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

			if now {
				counts, err := s.service().RecountTagUsage(ctx, user.ID)
				if err != nil {
					return fmt.Errorf("failed to recount tag usage: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recounted %d tags for %s.\n", len(counts), user.Email)
				return nil
			}

			if err := s.cfg.RequireQueue(); err != nil {
				return fmt.Errorf("%w (or pass --now)", err)
			}
			jobQueue, err := queue.ConnectRabbitMQ(ctx, s.cfg.RabbitMQURL, 1, zap.NewNop())
			if err != nil {
				return err
			}
			defer func() { _ = jobQueue.Close() }()

			if err := queue.NewRecountPublisher(jobQueue, 0, nil).ScheduleNightly(ctx, user.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Queued tag usage recount for %s.\n", user.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&userRef, "user", "", "User id or email (required)")
	cmd.Flags().BoolVar(&now, "now", false, "Run the recount in this process instead of queueing it")
	return cmd
}
