package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/cmdrunner/core/command"
	"github.com/dmitrymomot/cmdrunner/core/event"
	"github.com/dmitrymomot/cmdrunner/core/logger"
)

// EventFinished is published on the runner's event bus with a command.Info
// payload whenever a tracked command reaches a terminal state.
const EventFinished = "command.finished"

// Runner admits commands, dispatches them by priority under a concurrency
// limit, tracks their lifecycle and evicts finished commands after the
// retention window.
//
// All collection access and dispatch decisions happen under one lock; command
// logic runs on its own goroutine outside of it. A finished command frees its
// slot and triggers a dispatch pass from that goroutine, then hands itself to a
// coordinator goroutine that notifies observers and evicts.
type Runner struct {
	mu          sync.Mutex
	entries     []*entry
	index       map[uuid.UUID]*entry
	concurrency int
	retention   time.Duration
	executing   int
	closed      bool
	sweeping    bool

	sweepInterval   time.Duration
	shutdownTimeout time.Duration
	logger          *slog.Logger
	bus             *event.Bus

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	completions chan *entry
	wake        chan struct{}
	stop        chan struct{}
	loopDone    chan struct{}
	closeOnce   sync.Once
	closeErr    error

	admitted         atomic.Int64
	completed        atomic.Int64
	canceled         atomic.Int64
	failed           atomic.Int64
	evicted          atomic.Int64
	observerFailures atomic.Int64
}

type entry struct {
	cmd        *command.Command
	dispatched bool
	// counted is set for entries that hold a concurrency slot while running.
	counted  bool
	notified bool
}

// Stats provides observability metrics for monitoring and debugging.
type Stats struct {
	Admitted         int64 // Total commands admitted
	Completed        int64 // Commands that ended Completed
	Canceled         int64 // Commands that ended Canceled
	Failed           int64 // Commands that ended Error
	Evicted          int64 // Commands removed from the collection
	ObserverFailures int64 // Observer calls that failed or panicked
	Executing        int   // Commands holding a concurrency slot
	Queued           int   // Commands waiting for dispatch
	Tracked          int   // Commands currently in the collection
	Concurrency      int   // Current concurrency limit
	IsRunning        bool  // False once Close was called
}

// New creates a runner and starts its coordinator goroutine.
func New(opts ...Option) *Runner {
	o := &options{
		concurrency:     DefaultConcurrency,
		retention:       DefaultRetention,
		sweepInterval:   DefaultSweepInterval,
		shutdownTimeout: DefaultShutdownTimeout,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.bus == nil {
		o.bus = event.NewBus(event.WithLogger(o.logger))
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &Runner{
		index:           make(map[uuid.UUID]*entry),
		concurrency:     o.concurrency,
		retention:       o.retention,
		sweepInterval:   o.sweepInterval,
		shutdownTimeout: o.shutdownTimeout,
		logger:          o.logger,
		bus:             o.bus,
		ctx:             ctx,
		cancel:          cancel,
		completions:     make(chan *entry, 16),
		wake:            make(chan struct{}, 1),
		stop:            make(chan struct{}),
		loopDone:        make(chan struct{}),
	}

	for _, obs := range o.observers {
		_ = r.OnFinished(obs)
	}

	go r.loop()
	return r
}

// NewFromConfig creates a runner from configuration. Options override config values.
func NewFromConfig(cfg Config, opts ...Option) *Runner {
	allOpts := append([]Option{
		WithConcurrency(cfg.Concurrency),
		WithRetention(cfg.Retention),
		WithSweepInterval(cfg.SweepInterval),
		WithShutdownTimeout(cfg.ShutdownTimeout),
	}, opts...)

	return New(allOpts...)
}

// Admit queues a command and triggers a dispatch pass. The runner takes
// ownership of the command; callers keep only its id.
//
// A command canceled before admission is accepted and finalized as Canceled
// without running.
func (r *Runner) Admit(cmd *command.Command) (uuid.UUID, error) {
	if cmd == nil {
		return uuid.Nil, ErrNilCommand
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return uuid.Nil, ErrRunnerClosed
	}
	if _, ok := r.index[cmd.ID()]; ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrAlreadyAdmitted, cmd.ID())
	}

	if cmd.State() == command.StateCanceling {
		if !canceledBeforeAdmission(cmd) {
			return uuid.Nil, fmt.Errorf("%w: command %s was started by another owner", command.ErrInvalidTransition, cmd.ID())
		}
	} else if err := cmd.Enqueue(); err != nil {
		return uuid.Nil, err
	}

	e := &entry{cmd: cmd}
	r.entries = append(r.entries, e)
	r.index[cmd.ID()] = e
	r.admitted.Add(1)

	r.logger.DebugContext(r.ctx, "command admitted",
		logger.CommandID(cmd.ID()),
		logger.CommandName(cmd.Name()),
		logger.Priority(int(cmd.Priority())),
	)

	r.dispatchLocked()
	r.startSweepLocked()

	return cmd.ID(), nil
}

// Cancel requests cooperative cancellation. It returns false when the id is
// unknown or the command is already terminal. The command stays tracked.
func (r *Runner) Cancel(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.index[id]
	if !ok || !e.cmd.RequestCancel() {
		return false
	}

	r.logger.DebugContext(r.ctx, "command cancel requested",
		logger.CommandID(id),
		logger.CommandName(e.cmd.Name()),
	)

	if !e.dispatched {
		r.dispatchLocked()
	}
	return true
}

// Remove evicts a command that is not executing. Returns false when the id is
// unknown or the command is Executing or Canceling.
func (r *Runner) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.index[id]
	if !ok {
		return false
	}
	if s := e.cmd.State(); s == command.StateExecuting || s == command.StateCanceling {
		return false
	}

	r.evictLocked(e, "removed")
	return true
}

// Lookup returns a snapshot of any tracked command.
func (r *Runner) Lookup(id uuid.UUID) (command.Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.index[id]
	if !ok {
		return command.Info{}, false
	}
	return e.cmd.Snapshot(), true
}

// TakeFinished returns the snapshot of a terminal command and evicts it.
// It succeeds at most once per command.
func (r *Runner) TakeFinished(id uuid.UUID) (command.Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.index[id]
	if !ok {
		return command.Info{}, false
	}

	info := e.cmd.Snapshot()
	if !info.State.IsTerminal() {
		return command.Info{}, false
	}

	r.evictLocked(e, "taken")
	return info, true
}

// List returns snapshots of all tracked commands in admission order.
func (r *Runner) List() []command.Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]command.Info, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, e.cmd.Snapshot())
	}
	return infos
}

// Len returns the number of tracked commands.
func (r *Runner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Wait blocks until the command reaches a terminal state or ctx is done.
// The command must be tracked when Wait is called.
func (r *Runner) Wait(ctx context.Context, id uuid.UUID) (command.Info, error) {
	r.mu.Lock()
	e, ok := r.index[id]
	r.mu.Unlock()

	if !ok {
		return command.Info{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	select {
	case <-e.cmd.Done():
		return e.cmd.Snapshot(), nil
	case <-ctx.Done():
		return command.Info{}, ctx.Err()
	}
}

// SetConcurrency changes the concurrency limit. Non-positive values are ignored.
// Raising the limit dispatches waiting commands right away; lowering it lets
// executing commands finish.
func (r *Runner) SetConcurrency(n int) {
	if n <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.concurrency = n
	r.dispatchLocked()
}

// SetRetention changes the retention window used by the next sweep.
// Non-positive values are ignored.
func (r *Runner) SetRetention(d time.Duration) {
	if d <= 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.retention = d
}

// OnFinished registers a completion observer and returns a function that
// removes it. Observers run on the coordinator goroutine, one after another,
// outside the runner lock. Their errors and panics are logged and swallowed.
func (r *Runner) OnFinished(fn Observer) func() {
	if fn == nil {
		return func() {}
	}

	unsubscribe, err := r.bus.Subscribe(event.NewHandler(EventFinished, event.HandlerFunc[command.Info](fn)))
	if err != nil {
		return func() {}
	}
	return unsubscribe
}

// Stats returns current runner statistics. Safe to call at any time.
func (r *Runner) Stats() Stats {
	r.mu.Lock()
	queued := 0
	for _, e := range r.entries {
		if !e.dispatched {
			queued++
		}
	}
	stats := Stats{
		Executing:   r.executing,
		Queued:      queued,
		Tracked:     len(r.entries),
		Concurrency: r.concurrency,
		IsRunning:   !r.closed,
	}
	r.mu.Unlock()

	stats.Admitted = r.admitted.Load()
	stats.Completed = r.completed.Load()
	stats.Canceled = r.canceled.Load()
	stats.Failed = r.failed.Load()
	stats.Evicted = r.evicted.Load()
	stats.ObserverFailures = r.observerFailures.Load()
	return stats
}

// Healthcheck reports whether the runner accepts work and has capacity.
//
//	if errors.Is(err, runner.ErrRunnerClosed) { ... }
//	if errors.Is(err, runner.ErrRunnerOverloaded) { ... }
func (r *Runner) Healthcheck(ctx context.Context) error {
	stats := r.Stats()

	if !stats.IsRunning {
		return errors.Join(ErrHealthcheckFailed, ErrRunnerClosed)
	}

	if stats.Executing >= stats.Concurrency && stats.Queued > 0 {
		return errors.Join(ErrHealthcheckFailed, ErrRunnerOverloaded,
			fmt.Errorf("%d/%d slots busy, %d queued", stats.Executing, stats.Concurrency, stats.Queued))
	}

	return nil
}

// canceledBeforeAdmission reports whether cmd went straight from Created to
// Canceling, so no other owner ever queued or started it.
func canceledBeforeAdmission(cmd *command.Command) bool {
	h := cmd.Snapshot().History
	return len(h) == 2 && h[0].State == command.StateCreated && h[1].State == command.StateCanceling
}

// Close stops admission, cancels commands that were never dispatched and waits
// up to the shutdown timeout for executing commands to finish. Calling Close
// from an observer deadlocks.
func (r *Runner) Close() error {
	r.closeOnce.Do(func() {
		r.closeErr = r.shutdown()
	})
	return r.closeErr
}

// Run provides errgroup compatibility: the returned function blocks until ctx
// is done and then closes the runner.
func (r *Runner) Run(ctx context.Context) func() error {
	return func() error {
		<-ctx.Done()
		return r.Close()
	}
}

func (r *Runner) shutdown() error {
	start := time.Now()

	r.mu.Lock()
	r.closed = true
	pending := 0
	for _, e := range r.entries {
		if !e.dispatched && e.cmd.RequestCancel() {
			pending++
		}
	}
	r.dispatchLocked()
	r.mu.Unlock()

	r.logger.InfoContext(r.ctx, "runner stopping, waiting for executing commands",
		logger.Count("canceled_pending", pending),
		slog.Duration("timeout", r.shutdownTimeout),
	)

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		r.logger.InfoContext(r.ctx, "runner stopped cleanly", logger.Elapsed(start))
	case <-time.After(r.shutdownTimeout):
		err = fmt.Errorf("%w: after %s", ErrShutdownTimeout, r.shutdownTimeout)
		r.logger.WarnContext(r.ctx, "runner shutdown timeout exceeded, executing commands abandoned",
			slog.Duration("timeout", r.shutdownTimeout),
		)
	}

	r.cancel()
	close(r.stop)
	<-r.loopDone
	return err
}

// dispatchLocked finalizes commands canceled before dispatch and launches
// queued commands while slots are free. Must be called with r.mu held.
func (r *Runner) dispatchLocked() {
	for _, e := range r.entries {
		if !e.dispatched && e.cmd.State() == command.StateCanceling {
			r.launchLocked(e, false)
		}
	}

	if r.closed {
		return
	}

	for r.executing < r.concurrency {
		e := r.selectLocked()
		if e == nil {
			return
		}

		if err := e.cmd.Start(); err != nil {
			// Canceled directly on the command between selection and start.
			r.launchLocked(e, false)
			continue
		}

		r.logger.DebugContext(r.ctx, "command dispatched",
			logger.CommandID(e.cmd.ID()),
			logger.CommandName(e.cmd.Name()),
			logger.Priority(int(e.cmd.Priority())),
		)
		r.launchLocked(e, true)
	}
}

// selectLocked picks the queued command with the highest priority, then the
// earliest entry time, then the earliest position in the collection.
func (r *Runner) selectLocked() *entry {
	var (
		best      *entry
		bestEntry time.Time
	)
	for _, e := range r.entries {
		if e.dispatched || e.cmd.State() != command.StateQueued {
			continue
		}
		entryTime := e.cmd.EntryTime()
		if best == nil ||
			e.cmd.Priority() > best.cmd.Priority() ||
			(e.cmd.Priority() == best.cmd.Priority() && entryTime.Before(bestEntry)) {
			best, bestEntry = e, entryTime
		}
	}
	return best
}

func (r *Runner) launchLocked(e *entry, counted bool) {
	e.dispatched = true
	e.counted = counted
	if counted {
		r.executing++
	}

	r.wg.Add(1)
	go r.execute(e)
}

// execute runs the command on its own goroutine, frees its slot and hands the
// finished entry to the coordinator.
func (r *Runner) execute(e *entry) {
	defer r.wg.Done()

	if err := e.cmd.Run(r.ctx); err != nil {
		r.logger.ErrorContext(r.ctx, "command run rejected",
			logger.CommandID(e.cmd.ID()),
			logger.Error(err),
		)
	}

	r.release(e)

	select {
	case r.completions <- e:
	case <-r.stop:
	}
}

// loop is the coordinator: it handles completions and drives the sweep ticker.
func (r *Runner) loop() {
	defer close(r.loopDone)

	var (
		ticker *time.Ticker
		tick   <-chan time.Time
	)
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	defer stopTicker()

	for {
		select {
		case <-r.stop:
			return
		case e := <-r.completions:
			r.complete(e)
		case <-r.wake:
			if ticker == nil {
				ticker = time.NewTicker(r.sweepInterval)
				tick = ticker.C
				r.logger.DebugContext(r.ctx, "sweep started", slog.Duration("interval", r.sweepInterval))
			}
		case now := <-tick:
			if !r.sweep(now) {
				stopTicker()
				r.logger.DebugContext(r.ctx, "sweep stopped, no commands tracked")
			}
		}
	}
}

// release frees the slot held by a finished command and dispatches the next
// ones. Observers are not involved, so a slow observer never holds a slot.
func (r *Runner) release(e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.counted {
		e.counted = false
		r.executing--
	}
	r.dispatchLocked()
}

// complete notifies observers, then marks the entry as eligible for eviction.
func (r *Runner) complete(e *entry) {
	info := e.cmd.Snapshot()
	r.logCompletion(info)

	if err := r.bus.Publish(r.ctx, EventFinished, info); err != nil {
		failures := observerErrors(err)
		r.observerFailures.Add(int64(len(failures)))
		r.logger.ErrorContext(r.ctx, "completion observers failed",
			logger.CommandID(info.ID),
			logger.Error(ErrObserverFailed),
			logger.Errors(failures...),
		)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e.notified = true
	if info.DeleteImmediately {
		if cur, ok := r.index[info.ID]; ok && cur == e {
			r.evictLocked(e, "delete immediately")
		}
	}
}

// observerErrors splits the joined error returned by the bus into one error
// per failing observer.
func observerErrors(err error) []error {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		return joined.Unwrap()
	}
	return []error{err}
}

func (r *Runner) logCompletion(info command.Info) {
	attrs := []any{
		logger.CommandID(info.ID),
		logger.CommandName(info.Name),
		logger.State(info.State),
		logger.Duration(info.Duration()),
	}

	switch info.State {
	case command.StateCompleted:
		r.completed.Add(1)
		r.logger.InfoContext(r.ctx, "command completed", attrs...)
	case command.StateCanceled:
		r.canceled.Add(1)
		r.logger.WarnContext(r.ctx, "command canceled", attrs...)
	default:
		r.failed.Add(1)
		r.logger.ErrorContext(r.ctx, "command failed", append(attrs, logger.Error(info.Err))...)
	}
}

// sweep evicts stale terminal commands and finalizes commands canceled before
// dispatch. It reports whether the ticker should keep running.
func (r *Runner) sweep(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []*entry
	for _, e := range r.entries {
		if !e.notified {
			continue
		}
		info := e.cmd.Snapshot()
		if info.DeleteImmediately || now.Sub(info.CompleteTime) > r.retention {
			stale = append(stale, e)
		}
	}
	for _, e := range stale {
		r.evictLocked(e, "retention expired")
	}

	r.dispatchLocked()

	if len(r.entries) == 0 {
		r.sweeping = false
		return false
	}
	return true
}

func (r *Runner) startSweepLocked() {
	if r.sweeping {
		return
	}
	r.sweeping = true
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Runner) evictLocked(e *entry, reason string) {
	id := e.cmd.ID()
	if _, ok := r.index[id]; !ok {
		return
	}
	delete(r.index, id)

	for i, cur := range r.entries {
		if cur == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
	r.evicted.Add(1)

	r.logger.DebugContext(r.ctx, "command evicted",
		logger.CommandID(id),
		logger.CommandName(e.cmd.Name()),
		slog.String("reason", reason),
	)
}
