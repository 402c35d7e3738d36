package core

import (
	"fmt"
	"time"

	"github.com/netresearch/go-cron"
)

// schedParser is the shared go-cron parser instance backing ScheduleNext.
// FullParser mirrors what core/scheduler.go already configures cron.Cron
// with, so a JobSchedule's Expr parses identically whether it drives the
// in-process cron.Cron or the Job Scheduler's poll loop.
var schedParser = cron.FullParser()

// ScheduleNext computes the next fire instant for a JobSchedule strictly
// after from, covering all four kinds named in spec §4.1. A reboot
// schedule fires exactly once per process lifetime: callers are expected
// to pass a zero-value lastFired the first time and never again, which
// ScheduleNext signals by returning from unchanged and ok=false on the
// second call (see core/job_scheduler.go's use of it).
func ScheduleNext(schedule JobSchedule, from time.Time) (time.Time, error) {
	switch schedule.Kind {
	case ScheduleKindCron:
		return cronNext(schedule, from)
	case ScheduleKindInterval:
		if schedule.Every <= 0 {
			return time.Time{}, fmt.Errorf("%w: interval schedule requires a positive Every", ErrWorkflowInvalid)
		}
		return from.Add(schedule.Every), nil
	case ScheduleKindReboot:
		// Reboot schedules are handled by the caller recognizing that a
		// zero NextRunAt (never yet computed) means "due now, once";
		// ScheduleNext returns a time far in the future so a second
		// GetDueJobs poll never re-fires it until the process restarts.
		return from.Add(100 * 365 * 24 * time.Hour), nil
	case ScheduleKindOneShot:
		at, err := time.Parse(time.RFC3339, schedule.Expr)
		if err != nil {
			return time.Time{}, fmt.Errorf("one_shot schedule %q: %w", schedule.Expr, err)
		}
		if !at.After(from) {
			// Already fired or in the past relative to from; never again.
			return from.Add(100 * 365 * 24 * time.Hour), nil
		}
		return at, nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown schedule kind %q", ErrWorkflowInvalid, schedule.Kind)
	}
}

func cronNext(schedule JobSchedule, from time.Time) (time.Time, error) {
	loc := time.UTC
	if schedule.Zone != "" {
		l, err := time.LoadLocation(schedule.Zone)
		if err != nil {
			return time.Time{}, fmt.Errorf("schedule zone %q: %w", schedule.Zone, err)
		}
		loc = l
	}

	sched, err := schedParser.Parse(schedule.Expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("cron expression %q: %w", schedule.Expr, err)
	}
	return sched.Next(from.In(loc)), nil
}

// IsRebootSchedule reports whether a JobRecord should fire once, on its
// first poll after registration, rather than on a recurring cadence.
func IsRebootSchedule(schedule JobSchedule) bool {
	return schedule.Kind == ScheduleKindReboot
}
