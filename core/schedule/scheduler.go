package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/cmdrunner/core/command"
	"github.com/dmitrymomot/cmdrunner/core/logger"
)

// Admitter accepts commands for execution. *runner.Runner implements it.
type Admitter interface {
	Admit(cmd *command.Command) (uuid.UUID, error)
	Lookup(id uuid.UUID) (command.Info, bool)
}

// Factory builds a fresh command for every fire of a schedule entry.
type Factory func(ctx context.Context) (*command.Command, error)

// Scheduler admits commands on cron schedules.
type Scheduler struct {
	admitter Admitter
	parser   cron.Parser
	cron     *cron.Cron
	entries  map[string]*entry
	mu       sync.RWMutex

	shutdownTimeout time.Duration
	logger          *slog.Logger
	running         atomic.Bool

	commandsAdmitted atomic.Int64
	firesSkipped     atomic.Int64
	firesFailed      atomic.Int64
}

type entry struct {
	name          string
	spec          string
	factory       Factory
	skipIfRunning bool
	id            cron.EntryID

	mu     sync.Mutex
	lastID uuid.UUID
}

// EntryInfo describes a registered schedule entry.
type EntryInfo struct {
	Name          string
	Spec          string
	Next          time.Time
	Prev          time.Time
	LastCommandID uuid.UUID
}

// Stats provides observability metrics for the scheduler.
type Stats struct {
	CommandsAdmitted int64
	FiresSkipped     int64
	FiresFailed      int64
	Entries          int
	IsRunning        bool
}

// New creates a scheduler that admits commands into admitter.
// Specs accept an optional seconds field and descriptors such as "@every 5m".
func New(admitter Admitter, opts ...Option) (*Scheduler, error) {
	if admitter == nil {
		return nil, ErrNilAdmitter
	}

	o := &options{
		location:        time.UTC,
		shutdownTimeout: 30 * time.Second,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}

	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

	return &Scheduler{
		admitter:        admitter,
		parser:          parser,
		cron:            cron.New(cron.WithParser(parser), cron.WithLocation(o.location)),
		entries:         make(map[string]*entry),
		shutdownTimeout: o.shutdownTimeout,
		logger:          o.logger,
	}, nil
}

// NewFromConfig creates a scheduler from configuration. Options override config values.
func NewFromConfig(cfg Config, admitter Admitter, opts ...Option) (*Scheduler, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
			return nil, fmt.Errorf("schedule: load timezone %q: %w", cfg.Timezone, err)
		}
	}

	allOpts := append([]Option{
		WithLocation(loc),
		WithShutdownTimeout(cfg.ShutdownTimeout),
	}, opts...)

	return New(admitter, allOpts...)
}

// Add registers a named entry. Every fire calls factory and admits the result.
func (s *Scheduler) Add(name, spec string, factory Factory, opts ...EntryOption) error {
	if factory == nil {
		return ErrNilFactory
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSpec, spec, err)
	}

	eo := &entryOptions{}
	for _, opt := range opts {
		opt(eo)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	e := &entry{
		name:          name,
		spec:          spec,
		factory:       factory,
		skipIfRunning: eo.skipIfRunning,
	}

	id, err := s.cron.AddFunc(spec, func() { _, _ = s.fire(context.Background(), e) })
	if err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSpec, spec, err)
	}
	e.id = id
	s.entries[name] = e

	s.logger.InfoContext(context.Background(), "registered schedule entry",
		slog.String("entry", name),
		slog.String("spec", spec),
		slog.Bool("skip_if_running", eo.skipIfRunning),
	)
	return nil
}

// Remove unregisters an entry. Commands it already admitted are not affected.
func (s *Scheduler) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return false
	}
	s.cron.Remove(e.id)
	delete(s.entries, name)
	return true
}

// Trigger fires an entry immediately, outside its schedule.
func (s *Scheduler) Trigger(ctx context.Context, name string) (uuid.UUID, error) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()

	if !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrEntryNotFound, name)
	}
	return s.fire(ctx, e)
}

// Entries lists registered entries sorted by name.
func (s *Scheduler) Entries() []EntryInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]EntryInfo, 0, len(s.entries))
	for _, e := range s.entries {
		ce := s.cron.Entry(e.id)

		e.mu.Lock()
		last := e.lastID
		e.mu.Unlock()

		infos = append(infos, EntryInfo{
			Name:          e.name,
			Spec:          e.spec,
			Next:          ce.Next,
			Prev:          ce.Prev,
			LastCommandID: last,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Start begins firing entries in the background.
func (s *Scheduler) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSchedulerStarted
	}
	s.cron.Start()
	s.logger.InfoContext(context.Background(), "scheduler started", logger.Count("entries", s.entryCount()))
	return nil
}

// Stop halts firing and waits up to the shutdown timeout for in-flight fires.
func (s *Scheduler) Stop() error {
	if !s.running.CompareAndSwap(true, false) {
		return ErrSchedulerNotStarted
	}

	start := time.Now()
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.InfoContext(context.Background(), "scheduler stopped cleanly", logger.Elapsed(start))
		return nil
	case <-time.After(s.shutdownTimeout):
		s.logger.WarnContext(context.Background(), "scheduler shutdown timeout exceeded",
			slog.Duration("timeout", s.shutdownTimeout))
		return fmt.Errorf("schedule: shutdown timeout exceeded after %s", s.shutdownTimeout)
	}
}

// Run provides errgroup compatibility: it starts the scheduler, waits for ctx
// to be done and stops it.
func (s *Scheduler) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(); err != nil {
			return err
		}
		<-ctx.Done()
		return s.Stop()
	}
}

// Stats returns scheduler metrics.
func (s *Scheduler) Stats() Stats {
	return Stats{
		CommandsAdmitted: s.commandsAdmitted.Load(),
		FiresSkipped:     s.firesSkipped.Load(),
		FiresFailed:      s.firesFailed.Load(),
		Entries:          s.entryCount(),
		IsRunning:        s.running.Load(),
	}
}

func (s *Scheduler) entryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// fire builds and admits one command for e. Per-entry locking keeps the
// skip-if-running check and the admission atomic.
func (s *Scheduler) fire(ctx context.Context, e *entry) (uuid.UUID, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.skipIfRunning && e.lastID != uuid.Nil {
		if info, ok := s.admitter.Lookup(e.lastID); ok && !info.State.IsTerminal() {
			s.firesSkipped.Add(1)
			s.logger.DebugContext(ctx, "schedule fire skipped, previous command still running",
				slog.String("entry", e.name),
				logger.CommandID(e.lastID),
				logger.State(info.State),
			)
			return uuid.Nil, fmt.Errorf("%w: %s", ErrStillRunning, e.name)
		}
	}

	cmd, err := e.factory(ctx)
	if err == nil && cmd == nil {
		err = fmt.Errorf("factory returned no command")
	}
	if err != nil {
		s.firesFailed.Add(1)
		s.logger.ErrorContext(ctx, "schedule factory failed",
			slog.String("entry", e.name),
			logger.Error(err),
		)
		return uuid.Nil, fmt.Errorf("schedule %s: %w", e.name, err)
	}

	id, err := s.admitter.Admit(cmd)
	if err != nil {
		s.firesFailed.Add(1)
		s.logger.ErrorContext(ctx, "schedule admission failed",
			slog.String("entry", e.name),
			logger.Error(err),
		)
		return uuid.Nil, fmt.Errorf("schedule %s: %w", e.name, err)
	}

	e.lastID = id
	s.commandsAdmitted.Add(1)
	s.logger.DebugContext(ctx, "schedule fired",
		slog.String("entry", e.name),
		logger.CommandID(id),
		logger.CommandName(cmd.Name()),
	)
	return id, nil
}
