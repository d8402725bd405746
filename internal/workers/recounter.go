package workers

import (
	"context"
	"errors"
	"fmt"
	"time"

	logpkg "github.com/benvon/smart-habits/internal/logger"
	"github.com/benvon/smart-habits/internal/queue"
	"github.com/benvon/smart-habits/internal/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DefaultRetryBase is the first retry backoff; later attempts double it
const DefaultRetryBase = 5 * time.Second

// JobProcessor handles one job type
type JobProcessor func(ctx context.Context, job *queue.Job) error

// TagUsageRecounter recomputes a user's tag usage counts
type TagUsageRecounter interface {
	RecountUsage(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error)
}

// Recounter consumes habit jobs and dispatches them by type
type Recounter struct {
	tags      TagUsageRecounter
	jobQueue  queue.JobQueue
	logger    *zap.Logger
	registry  map[queue.JobType]JobProcessor
	retryBase time.Duration
	now       func() time.Time
}

// NewRecounter creates a recounter and registers the tag_usage_recount processor.
// jobQueue is used to re-enqueue failed jobs with backoff; nil sends failures to the DLQ.
func NewRecounter(tags TagUsageRecounter, jobQueue queue.JobQueue, logger *zap.Logger) *Recounter {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recounter{
		tags:      tags,
		jobQueue:  jobQueue,
		logger:    logger,
		registry:  make(map[queue.JobType]JobProcessor),
		retryBase: DefaultRetryBase,
		now:       time.Now,
	}
	r.RegisterProcessor(queue.JobTypeTagUsageRecount, r.ProcessTagUsageRecountJob)
	return r
}

// RegisterProcessor registers a processor for a job type.
func (r *Recounter) RegisterProcessor(typ queue.JobType, proc JobProcessor) {
	r.registry[typ] = proc
}

// ProcessTagUsageRecountJob recounts every tag of the job's user
func (r *Recounter) ProcessTagUsageRecountJob(ctx context.Context, job *queue.Job) error {
	if job.UserID == uuid.Nil {
		return errors.New("user_id is required for tag usage recount job")
	}

	counts, err := r.tags.RecountUsage(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to recount tag usage: %w", err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	r.logger.Info("tag_usage_recounted",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", logpkg.SanitizeUserID(job.UserID.String())),
		zap.String("reason", job.Reason),
		zap.Int("tags", len(counts)),
		zap.Int("total_usage", total),
	)
	return nil
}

// ProcessJob runs the registered processor and settles the message
func (r *Recounter) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	ctx, span := telemetry.StartJobSpan(ctx, string(job.Type), job.ID.String())
	defer span.End()

	proc, ok := r.registry[job.Type]
	if !ok {
		if nackErr := msg.Nack(false); nackErr != nil {
			r.logger.Error("failed_to_nack_unknown_job_type",
				zap.String("job_id", job.ID.String()),
				zap.String("job_type", string(job.Type)),
				zap.String("error", logpkg.SanitizeError(nackErr)),
			)
		}
		span.SetStatus(codes.Error, "unknown job type")
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	if err := proc(ctx, job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		return r.handleJobError(ctx, msg, job, err)
	}

	if ackErr := msg.Ack(); ackErr != nil {
		return fmt.Errorf("failed to ack job: %w", ackErr)
	}
	return nil
}

// handleJobError re-enqueues with exponential backoff while retries remain,
// otherwise dead-letters the message
func (r *Recounter) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, jobErr error) error {
	fields := []zap.Field{
		zap.String("job_id", job.ID.String()),
		zap.String("job_type", string(job.Type)),
		zap.String("user_id", logpkg.SanitizeUserID(job.UserID.String())),
		zap.Int("retry_count", job.RetryCount),
		zap.String("error", logpkg.SanitizeError(jobErr)),
	}

	if job.CanRetry() && r.jobQueue != nil {
		retry := job.Retry(r.now(), r.retryBase)
		err := r.jobQueue.Enqueue(ctx, retry)
		if err == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				r.logger.Warn("failed_to_ack_retried_job", append(fields, zap.Error(ackErr))...)
			}
			r.logger.Warn("job_retry_scheduled", append(fields, zap.Time("not_before", *retry.NotBefore))...)
			return fmt.Errorf("job %s failed, retry scheduled: %w", job.ID, jobErr)
		}
		r.logger.Error("failed_to_reenqueue_job", append(fields, zap.Error(err))...)
	}

	r.logger.Error("job_dead_lettered", fields...)
	if nackErr := msg.Nack(false); nackErr != nil {
		r.logger.Warn("failed_to_nack_job", append(fields, zap.Error(nackErr))...)
	}
	return fmt.Errorf("job %s failed: %w", job.ID, jobErr)
}

// Run consumes from jobQueue until ctx is cancelled or the delivery channel closes
func (r *Recounter) Run(ctx context.Context, prefetch int) error {
	if r.jobQueue == nil {
		return errors.New("recounter has no queue")
	}
	msgs, errs, err := r.jobQueue.Consume(ctx, prefetch)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	r.logger.Info("worker_consuming", zap.Int("prefetch", prefetch))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-errs:
			if ok && err != nil {
				return fmt.Errorf("consumer stopped: %w", err)
			}
			errs = nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			// Failures are already settled and logged
			_ = r.ProcessJob(ctx, msg)
		}
	}
}
