// Package runner turns job definitions into queue tasks: external commands
// and systemd unit actions.
package runner
