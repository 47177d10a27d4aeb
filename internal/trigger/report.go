package trigger

import (
	"errors"
	"time"

	logx "github.com/elsieclark/superqueue/pkg/logx"
)

const enqueueWarnThrottle = 5 * time.Second

// reportEnqueueError logs a failed trigger, at most once per job per
// enqueueWarnThrottle. Overlap skips are routine and only logged at debug.
func (s *Service) reportEnqueueError(job string, err error) {
	if errors.Is(err, ErrOverlapSkip) {
		s.log.Debug("trigger skipped", logx.String("job", job), logx.Err(err))
		return
	}

	now := time.Now()
	s.enqMu.Lock()
	last := s.lastEnqWarn[job]
	if !last.IsZero() && now.Sub(last) < enqueueWarnThrottle {
		s.enqMu.Unlock()
		return
	}
	s.lastEnqWarn[job] = now
	s.enqMu.Unlock()

	s.log.Warn("trigger failed to submit", logx.String("job", job), logx.Err(err))
}
