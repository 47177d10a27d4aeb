// Package superqueue is an in-process task admission scheduler.
//
// Callers submit tasks tagged with zero or more named flags. Every flag (and
// the implicit default flag every task carries) enforces a concurrency cap, a
// minimum spacing between starts, and a sliding-window rate limit. A single
// owner goroutine decides the earliest moment each task may start, starts
// eligible tasks in priority order (FIFO within a priority), and sleeps on one
// re-armable timer until the next moment any constraint can change.
//
//	q, err := superqueue.New(ctx, superqueue.Limits{Concurrency: 4})
//	if err != nil { ... }
//	_ = q.RegisterFlag("api", superqueue.Limits{Rate: 10, RateWindow: time.Second})
//	h, err := q.Submit(fetch, superqueue.WithFlags("api"), superqueue.WithPriority(5))
//	res, err := h.Wait(ctx)
//
// Lifecycle notifications are published on an eventbus.Bus as
// EventStart, EventComplete and EventEmpty.
package superqueue
