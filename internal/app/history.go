package app

import (
	"context"
	"time"

	"github.com/elsieclark/superqueue/internal/storage"
	"github.com/elsieclark/superqueue/pkg/eventbus"
	logx "github.com/elsieclark/superqueue/pkg/logx"
	"github.com/elsieclark/superqueue/pkg/superqueue"
)

// recordRuns appends every completed item to the store until events closes
// or ctx ends.
func recordRuns(ctx context.Context, log logx.Logger, store storage.Store, events <-chan eventbus.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-events:
			if !ok {
				return nil
			}
			ev, ok := e.Data.(superqueue.CompleteEvent)
			if !ok {
				continue
			}
			wctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			err := store.AppendRun(wctx, storage.RunFromEvent(ev))
			cancel()
			if err != nil {
				log.Warn("run not recorded", logx.String("id", ev.ID), logx.String("name", ev.Name), logx.Err(err))
			}
		}
	}
}
