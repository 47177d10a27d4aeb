// Package trigger fires configured jobs on cron or interval schedules by
// submitting them into a superqueue.Queue.
//
// Interval schedules get a random startup spread (up to min(every, 30s)) on
// their first firing. With SkipOverlap, a trigger is dropped while the
// job's previous submission is still pending or running.
package trigger
