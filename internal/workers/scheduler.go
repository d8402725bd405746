package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// UserLister lists every user id
type UserLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// NightlyPublisher enqueues an undelayed recount for one user
type NightlyPublisher interface {
	ScheduleNightly(ctx context.Context, userID uuid.UUID) error
}

// NightlyScheduler fans out a recount job per user on a cron schedule
type NightlyScheduler struct {
	cron      *cron.Cron
	users     UserLister
	publisher NightlyPublisher
	logger    *zap.Logger
	timeout   time.Duration
}

// NewNightlyScheduler registers the fan-out on a standard five field cron spec
// evaluated in loc.
func NewNightlyScheduler(spec string, loc *time.Location, users UserLister, publisher NightlyPublisher, logger *zap.Logger) (*NightlyScheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &NightlyScheduler{
		cron:      cron.New(cron.WithLocation(loc)),
		users:     users,
		publisher: publisher,
		logger:    logger,
		timeout:   10 * time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("invalid recount schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the cron scheduler in the background
func (s *NightlyScheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and waits for a running fan-out to finish
func (s *NightlyScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *NightlyScheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("nightly_recount_failed", zap.Error(err))
	}
}

// RunOnce enqueues a recount for every user and returns how many were queued.
// A failed enqueue is logged and skipped.
func (s *NightlyScheduler) RunOnce(ctx context.Context) (int, error) {
	ids, err := s.users.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	queued := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return queued, err
		}
		if err := s.publisher.ScheduleNightly(ctx, id); err != nil {
			s.logger.Warn("nightly_recount_enqueue_failed",
				zap.String("user_id", id.String()),
				zap.Error(err))
			continue
		}
		queued++
	}

	s.logger.Info("nightly_recount_scheduled",
		zap.Int("users", len(ids)),
		zap.Int("queued", queued))
	return queued, nil
}
