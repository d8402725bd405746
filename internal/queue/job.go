package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeTagUsageRecount recomputes every tag's usage count for one user
	// from the user's failed records
	JobTypeTagUsageRecount JobType = "tag_usage_recount"
)

// DefaultMaxRetries is the retry budget of a new job
const DefaultMaxRetries = 3

// Job represents a job in the queue
type Job struct {
	ID         uuid.UUID         `json:"id"`
	Type       JobType           `json:"type"`
	UserID     uuid.UUID         `json:"user_id"`
	Reason     string            `json:"reason,omitempty"`     // what triggered the job, for logs
	NotBefore  *time.Time        `json:"not_before,omitempty"` // earliest processing time (nil = immediate)
	NotAfter   *time.Time        `json:"not_after,omitempty"`  // latest processing time (nil = no expiration)
	CreatedAt  time.Time         `json:"created_at"`
	RetryCount int               `json:"retry_count"`
	MaxRetries int               `json:"max_retries"`
}

// NewJob creates a new job created at now
func NewJob(jobType JobType, userID uuid.UUID, reason string, now time.Time) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		Reason:     reason,
		CreatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}
}

// Delay sets NotBefore to now+d
func (j *Job) Delay(now time.Time, d time.Duration) *Job {
	notBefore := now.Add(d)
	j.NotBefore = &notBefore
	return j
}

// Expire sets NotAfter to now+ttl
func (j *Job) Expire(now time.Time, ttl time.Duration) *Job {
	notAfter := now.Add(ttl)
	j.NotAfter = &notAfter
	return j
}

// ShouldProcess reports whether the job is inside its processing window at now
func (j *Job) ShouldProcess(now time.Time) bool {
	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}
	return !j.IsExpired(now)
}

// IsExpired reports whether NotAfter has passed
func (j *Job) IsExpired(now time.Time) bool {
	return j.NotAfter != nil && now.After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// Retry returns a copy scheduled for another attempt after an exponential
// backoff (base, 2*base, 4*base...)
func (j *Job) Retry(now time.Time, base time.Duration) *Job {
	next := *j
	next.RetryCount++
	next.NotBefore = nil
	return next.Delay(now, base<<j.RetryCount)
}
