// Package storage records finished queue runs so they can be listed after
// the process restarts. Queued work itself is never persisted.
package storage
