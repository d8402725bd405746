package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultRecountDelay gives a burst of tag edits time to settle before recounting
	DefaultRecountDelay = 30 * time.Second
	// RecountJobTTL drops recount jobs that sat in the queue for a day
	RecountJobTTL = 24 * time.Hour

	debounceKeyPrefix = "habits:recount:"
)

// Debouncer claims a key for ttl, reporting false when it is already held
type Debouncer interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisDebouncer claims keys with SET NX
type RedisDebouncer struct {
	client *redis.Client
}

// NewRedisDebouncer wraps a redis client
func NewRedisDebouncer(client *redis.Client) *RedisDebouncer {
	return &RedisDebouncer{client: client}
}

// Claim implements Debouncer
func (d *RedisDebouncer) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}

// RecountPublisher turns recount requests into delayed queue jobs
type RecountPublisher struct {
	queue     JobQueue
	debouncer Debouncer
	delay     time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// PublisherOption configures a RecountPublisher
type PublisherOption func(*RecountPublisher)

// WithDebouncer collapses repeated requests for one user within the delay window
func WithDebouncer(d Debouncer) PublisherOption {
	return func(p *RecountPublisher) { p.debouncer = d }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) PublisherOption {
	return func(p *RecountPublisher) { p.now = now }
}

// NewRecountPublisher creates a publisher; a non-positive delay falls back to DefaultRecountDelay
func NewRecountPublisher(queue JobQueue, delay time.Duration, logger *zap.Logger, opts ...PublisherOption) *RecountPublisher {
	if delay <= 0 {
		delay = DefaultRecountDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &RecountPublisher{
		queue:  queue,
		delay:  delay,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ScheduleRecount enqueues a tag usage recount for the user
func (p *RecountPublisher) ScheduleRecount(ctx context.Context, userID uuid.UUID) error {
	return p.schedule(ctx, userID, "tag_deleted", p.delay)
}

// ScheduleNightly enqueues an immediate recount, bypassing the debouncer
func (p *RecountPublisher) ScheduleNightly(ctx context.Context, userID uuid.UUID) error {
	job := NewJob(JobTypeTagUsageRecount, userID, "nightly", p.now())
	job.Expire(p.now(), RecountJobTTL)
	if err := p.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue nightly recount: %w", err)
	}
	return nil
}

func (p *RecountPublisher) schedule(ctx context.Context, userID uuid.UUID, reason string, delay time.Duration) error {
	if p.debouncer != nil {
		claimed, err := p.debouncer.Claim(ctx, debounceKeyPrefix+userID.String(), delay)
		if err != nil {
			// Publish anyway; the recount is idempotent
			p.logger.Warn("recount_debounce_failed",
				zap.String("user_id", userID.String()),
				zap.Error(err))
		} else if !claimed {
			p.logger.Debug("recount_debounced", zap.String("user_id", userID.String()))
			return nil
		}
	}

	now := p.now()
	job := NewJob(JobTypeTagUsageRecount, userID, reason, now).Delay(now, delay)
	job.Expire(now, RecountJobTTL)
	if err := p.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue recount: %w", err)
	}

	p.logger.Debug("recount_scheduled",
		zap.String("user_id", userID.String()),
		zap.String("job_id", job.ID.String()),
		zap.Duration("delay", delay))
	return nil
}
