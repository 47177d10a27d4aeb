//go:build !linux

package runner

import (
	"context"

	logx "github.com/elsieclark/superqueue/pkg/logx"
	"github.com/elsieclark/superqueue/pkg/superqueue"
)

type Units struct{}

func NewUnits(logx.Logger) *Units { return &Units{} }

func (u *Units) Task(unit, action string) superqueue.Task {
	return func(context.Context) (any, error) {
		if err := checkAction(action); err != nil {
			return nil, err
		}
		return nil, ErrUnsupported
	}
}

func (u *Units) Close() error { return nil }
