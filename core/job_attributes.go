package core

import "time"

// JobAttributes is the optional-capability interface the Job Scheduler
// and Dispatcher probe for when a Job needs to be reflected into a
// JobRecord (spec §3) — the same duck-typed pattern RetryableJob already
// uses for MaxRetries/RetryDelayMs. A Job that doesn't implement it just
// runs with the package defaults (queue "default", priority 0, enabled).
type JobAttributes interface {
	Job
	GetQueue() string
	GetPriority() int
	GetTimeout() time.Duration
	IsUnique() bool
	IsEnabled() bool
	IsPaused() bool
	GetTags() []string
	GetMetadata() map[string]any
}

func (j *BareJob) GetQueue() string {
	if j.Queue == "" {
		return "default"
	}
	return j.Queue
}

func (j *BareJob) GetPriority() int { return j.Priority }

func (j *BareJob) GetTimeout() time.Duration { return j.Timeout }

func (j *BareJob) IsUnique() bool { return j.Unique }

func (j *BareJob) IsEnabled() bool { return j.Enabled }

func (j *BareJob) IsPaused() bool { return j.Paused }

func (j *BareJob) GetTags() []string { return j.Tags }

func (j *BareJob) GetMetadata() map[string]any { return j.Metadata }

// JobRecordFromJob reflects a JobAttributes-implementing Job into a
// JobRecord for registration with a Store, the bridge between the
// in-process cron.Cron job types and the Store-polled Job Scheduler.
func JobRecordFromJob(j Job, target string, args any, schedule JobSchedule) *JobRecord {
	rec := &JobRecord{
		Name:     j.GetName(),
		Target:   target,
		Args:     args,
		Schedule: schedule,
		Queue:    "default",
		Enabled:  true,
		State:    JobStateActive,
	}

	if retryable, ok := j.(RetryableJob); ok {
		rec.MaxRetries = retryable.GetRetryConfig().MaxRetries
	}

	if attrs, ok := j.(JobAttributes); ok {
		rec.Queue = attrs.GetQueue()
		rec.Priority = attrs.GetPriority()
		rec.Timeout = attrs.GetTimeout()
		rec.Unique = attrs.IsUnique()
		rec.Enabled = attrs.IsEnabled()
		rec.Paused = attrs.IsPaused()
		rec.Tags = attrs.GetTags()
		rec.Metadata = attrs.GetMetadata()
		if rec.Paused {
			rec.State = JobStatePaused
		}
		if !rec.Enabled {
			rec.State = JobStateDisabled
		}
	}

	return rec
}
