package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/benvon/smart-habits/internal/config"
	"github.com/benvon/smart-habits/internal/database"
	"github.com/benvon/smart-habits/internal/models"
	"github.com/benvon/smart-habits/internal/services/habits"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

type globalOptions struct {
	databaseURL string
}

// NewRootCmd assembles the habitctl command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "habitctl",
		Short:         "Administration tool for Smart Habits",
		Long:          "CLI tool for migrating the database, inspecting statistics and managing tags and rate limits",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.databaseURL, "database-url", "", "Database URL (defaults to DATABASE_URL)")

	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newStatsCmd(opts))
	root.AddCommand(newTagsCmd(opts))
	root.AddCommand(newRatelimitCmd(opts))
	return root
}

// store bundles an open database with its repositories
type store struct {
	cfg        *config.Config
	db         *database.DB
	tasks      *database.TaskRepository
	tags       *database.TagRepository
	records    *database.RecordRepository
	users      *database.UserRepository
	ratelimits *database.RatelimitConfigRepository
}

func (o *globalOptions) open(ctx context.Context) (*store, error) {
	var cfg *config.Config
	if o.databaseURL != "" {
		cfg = config.Defaults()
		cfg.DatabaseURL = o.databaseURL
		if tz := os.Getenv("HABITS_TIMEZONE"); tz != "" {
			cfg.Timezone = tz
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	} else {
		var err error
		if cfg, err = config.Load(); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &store{
		cfg:        cfg,
		db:         db,
		tasks:      database.NewTaskRepository(db),
		tags:       database.NewTagRepository(db),
		records:    database.NewRecordRepository(db),
		users:      database.NewUserRepository(db),
		ratelimits: database.NewRatelimitConfigRepository(db),
	}, nil
}

func (s *store) close(cmd *cobra.Command) {
	if err := s.db.Close(); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to close database: %v\n", err)
	}
}

func (s *store) service(opts ...habits.Option) *habits.Service {
	opts = append([]habits.Option{habits.WithLocation(s.cfg.Location())}, opts...)
	return habits.NewService(s.tasks, s.tags, s.records, s.users, opts...)
}

// resolveUser accepts a user id or an email address
func (s *store) resolveUser(ctx context.Context, ref string) (*models.User, error) {
	if ref == "" {
		return nil, fmt.Errorf("--user is required")
	}
	if id, err := uuid.Parse(ref); err == nil {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to get user %s: %w", id, err)
		}
		return user, nil
	}
	user, err := s.users.GetByEmail(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", ref, err)
	}
	return user, nil
}
