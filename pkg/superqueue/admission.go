package superqueue

import "time"

// item is one pending or running submission.
type item struct {
	id          string
	priority    int
	name        string
	flags       []flagID // default flag first
	task        Task
	submittedAt time.Time
	handle      *Handle

	startedAt time.Time
}

// namedFlags returns the caller-visible flag names (the default flag omitted).
func (it *item) namedFlags() []string {
	out := make([]string, 0, len(it.flags))
	for _, id := range it.flags {
		if !id.isDefault {
			out = append(out, id.name)
		}
	}
	return out
}

// admissionQueue keeps pending items sorted by ascending priority; equal
// priorities keep submission order.
type admissionQueue struct {
	items []*item
}

// insert places it after every item whose priority is <= its own.
func (q *admissionQueue) insert(it *item) {
	idx := len(q.items)
	for i, cur := range q.items {
		if cur.priority > it.priority {
			idx = i
			break
		}
	}
	q.items = append(q.items, nil)
	copy(q.items[idx+1:], q.items[idx:])
	q.items[idx] = it
}

// remove deletes it and reports whether it was queued.
func (q *admissionQueue) remove(it *item) bool {
	for i, cur := range q.items {
		if cur == it {
			copy(q.items[i:], q.items[i+1:])
			q.items[len(q.items)-1] = nil
			q.items = q.items[:len(q.items)-1]
			return true
		}
	}
	return false
}

func (q *admissionQueue) len() int      { return len(q.items) }
func (q *admissionQueue) isEmpty() bool { return len(q.items) == 0 }

// snapshot returns the items in priority order; it is safe to remove items
// from the queue while ranging over the result.
func (q *admissionQueue) snapshot() []*item {
	return append([]*item(nil), q.items...)
}

// drain empties the queue and returns what it held.
func (q *admissionQueue) drain() []*item {
	out := q.items
	q.items = nil
	return out
}
