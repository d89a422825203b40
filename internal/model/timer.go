package model

import "time"

// Timer is a span of work on a named task. A nil EndTime marks the timer
// as active; Duration is nil in that case.
type Timer struct {
	ID        int64      `json:"id"`
	TaskName  string     `json:"task_name"`
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Duration  *int64     `json:"duration"`
}

// TimerInput carries the client-supplied fields for create and update.
type TimerInput struct {
	TaskName  string
	StartTime time.Time
	EndTime   *time.Time
}

// Active reports whether the timer has no end time.
func (t Timer) Active() bool {
	return t.EndTime == nil
}

// Normalize converts both timestamps to UTC at whole-second precision,
// the precision the timers table stores.
func (in TimerInput) Normalize() TimerInput {
	in.StartTime = in.StartTime.UTC().Truncate(time.Second)
	if in.EndTime != nil {
		end := in.EndTime.UTC().Truncate(time.Second)
		in.EndTime = &end
	}
	return in
}

// Duration returns the stored duration for the input, or nil for an
// active timer.
func (in TimerInput) Duration() *int64 {
	if in.EndTime == nil {
		return nil
	}
	d := ComputeDuration(in.StartTime, *in.EndTime)
	return &d
}

// ComputeDuration returns end minus start in whole seconds, truncated
// toward zero. An end before start yields a negative value.
func ComputeDuration(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Second)
}
