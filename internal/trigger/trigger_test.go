package trigger

import (
	"context"
	"errors"
		"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/elsieclark/superqueue/pkg/superqueue"
)

func TestParseSchedule(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   string
		want Schedule
	}{
		{"*/5 * * * *", Schedule{Kind: KindCron, Cron: "*/5 * * * *", Source: "cron"}},
		{"@hourly", Schedule{Kind: KindCron, Cron: "@hourly", Source: "cron"}},
		{"cron:0 0 * * *", Schedule{Kind: KindCron, Cron: "0 0 * * *", Source: "cron"}},
		{"55m", Schedule{Kind: KindInterval, Every: 55 * time.Minute, Source: "duration"}},
		{"02:30", Schedule{Kind: KindInterval, Every: 150 * time.Minute, Source: "hhmm"}},
		{"interval: 00:50", Schedule{Kind: KindInterval, Every: 50 * time.Minute, Source: "hhmm"}},
		{"every:10s", Schedule{Kind: KindInterval, Every: 10 * time.Second, Source: "duration"}},
	}
	for _, tt := range tests {
		got, err := ParseSchedule(tt.in)
		require.NoError(t, err, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "soon", "0s", "01:75", "cron:", "interval:-1m"} {
		_, err := ParseSchedule(bad)
		require.Error(t, err, bad)
	}
	require.Equal(t, "@every 1m0s", Schedule{Kind: KindInterval, Every: time.Minute}.Spec())
}

func TestSpreadScheduleDelaysOnlyFirstRun(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sched, jitter := intervalWithSpread(time.Minute, now, "job")
	require.GreaterOrEqual(t, jitter, time.Duration(0))
	require.Less(t, jitter, time.Minute)

	first := sched.Next(now)
	require.Equal(t, now.Add(time.Minute+jitter), first)
	require.Equal(t, first.Add(time.Minute).Truncate(time.Second), sched.Next(first).Truncate(time.Second))
}

// failingQueue rejects every submission.
type failingQueue struct{ err error }

func (f failingQueue) Submit(superqueue.Task, ...superqueue.SubmitOption) (*superqueue.Handle, error) {
	return nil, f.err
}

func newQueue(t *testing.T) *superqueue.Queue {
	t.Helper()
	q, err := superqueue.New(context.Background(), superqueue.Limits{Concurrency: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Close(context.Background()) })
	return q
}

func TestAddRejectsBadJobs(t *testing.T) {
	t.Parallel()
	s := New(failingQueue{err: superqueue.ErrClosed})
	run := func(context.Context) (any, error) { return nil, nil }

	require.Error(t, s.Add(Job{Schedule: "1m", Run: run}))
	require.ErrorIs(t, s.Add(Job{Name: "j", Schedule: "1m"}), superqueue.ErrMissingTask)
	require.Error(t, s.Add(Job{Name: "j", Schedule: "61 * * * *", Run: run}))
	require.NoError(t, s.Add(Job{Name: "j", Schedule: "1m", Run: run}))
	require.NoError(t, s.Add(Job{Name: "j", Schedule: "*/5 * * * *", Run: run}))
	require.Len(t, s.Jobs(), 1)
	require.Equal(t, "cron", s.Jobs()[0].Kind)
	require.True(t, s.Remove("j"))

	require.NoError(t, Validate("@every 90s"))
	require.NoError(t, Validate("0 30 2 * * *"))
	require.ErrorContains(t, Validate("61 * * * *"), "invalid cron")
	require.Error(t, Validate(""))
	require.False(t, s.Remove("j"))
}

func TestTriggerSkipsOverlap(t *testing.T) {
	t.Parallel()
	q := newQueue(t)
	s := New(q)

	release := make(chan struct{})
	require.NoError(t, s.Add(Job{
		Name:        "sync",
		Schedule:    "1h",
		SkipOverlap: true,
		Run: func(context.Context) (any, error) {
			<-release
			return "ok", nil
		},
	}))

	h, err := s.Trigger("sync")
	require.NoError(t, err)
	_, err = s.Trigger("sync")
	require.ErrorIs(t, err, ErrOverlapSkip)

	close(release)
	res, err := h.Wait(context.Background())
	require.NoError(t, err)
	require.Equal(t, "ok", res)

	// The slot frees once the handle settles.
	require.Eventually(t, func() bool { return s.Jobs()[0].Active == 0 }, 2*time.Second, 5*time.Millisecond)
	h2, err := s.Trigger("sync")
	require.NoError(t, err)
	_, err = h2.Wait(context.Background())
	require.NoError(t, err)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	require.Equal(t, uint64(2), jobs[0].Fired)
	require.Equal(t, uint64(1), jobs[0].Skipped)

	_, err = s.Trigger("missing")
	require.ErrorIs(t, err, ErrUnknownJob)
}

func TestTriggerAppliesTimeoutAndFlags(t *testing.T) {
	t.Parallel()
	q := newQueue(t)
	require.NoError(t, q.RegisterFlag("api", superqueue.Limits{Concurrency: 1}))
	s := New(q)

	require.NoError(t, s.Add(Job{
		Name:     "slow",
		Schedule: "1h",
		Flags:    []string{"api"},
		Timeout:  20 * time.Millisecond,
		Run: func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}))
	h, err := s.Trigger("slow")
	require.NoError(t, err)
	_, err = h.Wait(context.Background())
	require.True(t, errors.Is(err, context.DeadlineExceeded), "err = %v", err)
}

func TestSubmitFailureReleasesOverlapSlot(t *testing.T) {
	t.Parallel()
	s := New(failingQueue{err: superqueue.ErrClosed})
	require.NoError(t, s.Add(Job{Name: "j", Schedule: "1m", SkipOverlap: true, Run: func(context.Context) (any, error) { return nil, nil }}))

	_, err := s.Trigger("j")
	require.ErrorIs(t, err, superqueue.ErrClosed)
	_, err = s.Trigger("j")
	require.ErrorIs(t, err, superqueue.ErrClosed, "a failed submit must not hold the overlap slot")
}

func TestStartFiresIntervalJobs(t *testing.T) {
	t.Parallel()
	q := newQueue(t)
	s := New(q)
	ran := make(chan struct{}, 8)
	require.NoError(t, s.Add(Job{
		Name:     "tick",
		Schedule: "cron:@every 1s",
		Run: func(context.Context) (any, error) {
			ran <- struct{}{}
			return nil, nil
		},
	}))
	s.Start()
	defer s.Stop(context.Background())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("cron job never fired")
	}
	require.False(t, s.Jobs()[0].Next.IsZero())
}
