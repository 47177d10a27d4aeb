package trigger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	logx "github.com/elsieclark/superqueue/pkg/logx"
	"github.com/elsieclark/superqueue/pkg/superqueue"
)

// ErrOverlapSkip is reported when a trigger is dropped because the
// previous run of the same job has not settled yet.
var ErrOverlapSkip = errors.New("previous run still pending or running")

var ErrUnknownJob = errors.New("unknown job")

// SecondOptional allows both 5-field and 6-field (with seconds) specs.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func cronError(spec string, err error) error {
	return fmt.Errorf("invalid cron %q: %w", spec, err)
}

// Validate reports whether raw is a schedule Add would accept.
func Validate(raw string) error {
	sched, err := ParseSchedule(raw)
	if err != nil {
		return err
	}
	if sched.Kind == KindCron {
		if _, err := cronParser.Parse(sched.Cron); err != nil {
			return cronError(sched.Cron, err)
		}
	}
	return nil
}

// Submitter is the part of *superqueue.Queue that triggers use.
type Submitter interface {
	Submit(task superqueue.Task, opts ...superqueue.SubmitOption) (*superqueue.Handle, error)
}

// Job is submitted into the queue each time its schedule fires.
type Job struct {
	Name     string
	Schedule string
	Priority int
	Flags    []string
	// Timeout bounds one run; 0 means none.
	Timeout time.Duration
	// SkipOverlap drops a trigger while the previous run is queued or running.
	SkipOverlap bool
	Run         superqueue.Task
}

type jobDef struct {
	job     Job
	sched   Schedule
	entryID cron.EntryID
	spread  time.Duration

	// active counts runs submitted but not yet settled.
	active  atomic.Int32
	fired   atomic.Uint64
	skipped atomic.Uint64
}

// Service fires jobs on their schedules. It only submits; execution, limits
// and ordering belong to the queue.
type Service struct {
	mu     sync.Mutex
	log    logx.Logger
	q      Submitter
	loc    *time.Location
	parser cron.Parser
	c      *cron.Cron
	defs   map[string]*jobDef

	enqMu       sync.Mutex
	lastEnqWarn map[string]time.Time
}

type Option func(*Service)

func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(log logx.Logger) Option { return func(s *Service) { s.log = log } }

func New(q Submitter, opts ...Option) *Service {
	s := &Service{
		q:   q,
		loc: time.Local,
		// SecondOptional allows both 5-field and 6-field (with seconds) specs.
		parser:      cronParser,
		defs:        map[string]*jobDef{},
		lastEnqWarn: map[string]time.Time{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.log.IsZero() {
		s.log = logx.Nop()
	}
	return s
}

// Add registers job, replacing any job with the same name. Jobs added
// before Start are scheduled when it runs.
func (s *Service) Add(job Job) error {
	job.Name = strings.TrimSpace(job.Name)
	if job.Name == "" {
		return errors.New("job name required")
	}
	if job.Run == nil {
		return fmt.Errorf("job %q: %w", job.Name, superqueue.ErrMissingTask)
	}
	sched, err := ParseSchedule(job.Schedule)
	if err != nil {
		return fmt.Errorf("job %q: %w", job.Name, err)
	}
	if sched.Kind == KindCron {
		if _, err := s.parser.Parse(sched.Cron); err != nil {
			return fmt.Errorf("job %q: %w", job.Name, cronError(sched.Cron, err))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(job.Name)
	d := &jobDef{job: job, sched: sched}
	s.defs[job.Name] = d
	if s.c != nil {
		s.scheduleLocked(d)
	}
	return nil
}

// Remove unschedules name and reports whether it existed.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(strings.TrimSpace(name))
}

func (s *Service) removeLocked(name string) bool {
	d, ok := s.defs[name]
	if !ok {
		return false
	}
	if s.c != nil && d.entryID != 0 {
		s.c.Remove(d.entryID)
	}
	delete(s.defs, name)
	return true
}

func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.c != nil {
		return
	}
	s.c = cron.New(cron.WithParser(s.parser), cron.WithLocation(s.loc))
	for _, d := range s.defs {
		s.scheduleLocked(d)
	}
	s.c.Start()
	s.log.Info("triggers started", logx.String("tz", s.loc.String()), logx.Int("jobs", len(s.defs)))
}

// Stop stops firing. Runs already submitted are left to the queue.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.c
	s.c = nil
	for _, d := range s.defs {
		d.entryID = 0
	}
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("triggers stopped")
}

func (s *Service) scheduleLocked(d *jobDef) {
	job := cron.FuncJob(func() {
		if _, err := s.fire(d); err != nil {
			s.reportEnqueueError(d.job.Name, err)
		}
	})
	if d.sched.Kind == KindInterval {
		sched, jitter := intervalWithSpread(d.sched.Every, time.Now().In(s.loc), d.job.Name)
		d.spread = jitter
		d.entryID = s.c.Schedule(sched, job)
	} else {
		id, err := s.c.AddJob(d.sched.Cron, job)
		if err != nil {
			// Add already parsed the spec with the same parser.
			s.log.Error("schedule register failed", logx.String("job", d.job.Name), logx.String("spec", d.sched.Cron), logx.Err(err))
			return
		}
		d.entryID = id
	}
	args := []logx.Field{logx.String("job", d.job.Name), logx.String("spec", d.sched.Spec()), logx.Duration("timeout", d.job.Timeout)}
	if d.spread > 0 {
		args = append(args, logx.Duration("startup_spread", d.spread))
	}
	if next := s.previewLocked(d, 3); next != "" {
		args = append(args, logx.String("next", next))
	}
	s.log.Debug("schedule registered", args...)
}

// Trigger submits name now, outside its schedule. Overlap policy applies.
func (s *Service) Trigger(name string) (*superqueue.Handle, error) {
	s.mu.Lock()
	d, ok := s.defs[strings.TrimSpace(name)]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return s.fire(d)
}

func (s *Service) fire(d *jobDef) (*superqueue.Handle, error) {
	job := d.job
	if job.SkipOverlap && !d.active.CompareAndSwap(0, 1) {
		d.skipped.Add(1)
		return nil, ErrOverlapSkip
	}
	if !job.SkipOverlap {
		d.active.Add(1)
	}

	run := job.Run
	if job.Timeout > 0 {
		run = func(ctx context.Context) (any, error) {
			ctx, cancel := context.WithTimeout(ctx, job.Timeout)
			defer cancel()
			return job.Run(ctx)
		}
	}
	h, err := s.q.Submit(run,
		superqueue.WithName(job.Name),
		superqueue.WithPriority(job.Priority),
		superqueue.WithFlags(job.Flags...),
	)
	if err != nil {
		d.active.Add(-1)
		return nil, err
	}
	d.fired.Add(1)
	go func() {
		<-h.Done()
		d.active.Add(-1)
	}()
	return h, nil
}

// JobInfo describes one registered job.
type JobInfo struct {
	Name    string        `json:"name"`
	Spec    string        `json:"spec"`
	Kind    string        `json:"kind"`
	Timeout time.Duration `json:"timeout"`
	Active  int           `json:"active"`
	Fired   uint64        `json:"fired"`
	Skipped uint64        `json:"skipped"`
	Next    time.Time     `json:"next,omitzero"`
	Prev    time.Time     `json:"prev,omitzero"`
}

// Jobs lists registered jobs by name.
func (s *Service) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]JobInfo, 0, len(s.defs))
	for _, d := range s.defs {
		ji := JobInfo{
			Name:    d.job.Name,
			Spec:    d.sched.Spec(),
			Kind:    d.sched.Kind.String(),
			Timeout: d.job.Timeout,
			Active:  int(d.active.Load()),
			Fired:   d.fired.Load(),
			Skipped: d.skipped.Load(),
		}
		if s.c != nil && d.entryID != 0 {
			e := s.c.Entry(d.entryID)
			ji.Next, ji.Prev = e.Next, e.Prev
		}
		out = append(out, ji)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// previewLocked lists the next n fire times, only when debug logging is on.
func (s *Service) previewLocked(d *jobDef, n int) string {
	if !s.log.Enabled(logx.LevelDebug) || d.sched.Kind != KindCron {
		return ""
	}
	sched, err := s.parser.Parse(d.sched.Cron)
	if err != nil {
		return ""
	}
	t := time.Now().In(s.loc)
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if t = sched.Next(t); t.IsZero() {
			break
		}
		parts = append(parts, t.Format("2006-01-02 15:04:05"))
	}
	return strings.Join(parts, ", ")
}
