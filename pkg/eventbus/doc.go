// Package eventbus is a small non-blocking fanout used to publish queue
// lifecycle notifications (start, complete, empty) to any number of
// observers without letting a slow observer stall the scheduler.
package eventbus
