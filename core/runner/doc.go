// Package runner provides an in-process command scheduler.
//
// A Runner admits commands into a tracked collection, dispatches them by
// priority under a concurrency limit, records every state transition on the
// command and reclaims finished commands after a retention window or right
// away when the command kind asks for it.
//
// # Basic Usage
//
//	r := runner.New(
//		runner.WithConcurrency(4),
//		runner.WithRetention(time.Minute),
//		runner.WithLogger(log),
//	)
//	defer r.Close()
//
//	resize := command.NewHandler("images.resize",
//		func(ctx context.Context, args ResizeArgs) (ResizeResult, error) {
//			return resizeImage(ctx, args)
//		})
//
//	cmd, err := command.New(resize,
//		command.WithArgs(ResizeArgs{URL: url, Width: 640}),
//		command.WithPriority(command.PriorityHigh),
//	)
//	if err != nil {
//		return err
//	}
//
//	id, err := r.Admit(cmd)
//	if err != nil {
//		return err
//	}
//
//	info, err := r.Wait(ctx, id)
//
// # Dispatch Order
//
// Among queued commands the runner picks the highest priority first, then the
// earliest entry time, then the earliest admission. At most the configured
// number of commands execute at once; a command keeps its slot while it is
// canceling. Admission is not bounded.
//
// # Queries
//
//   - Lookup returns a snapshot of any tracked command
//   - TakeFinished returns the snapshot of a terminal command and evicts it, once
//   - List returns snapshots of every tracked command in admission order
//   - Remove evicts a command that is not executing
//
// Unknown ids yield false (or ErrNotFound from Wait), never a panic.
//
// # Cancellation
//
// Cancel is cooperative. A queued command that is canceled never executes; it
// is finalized as Canceled and reported to observers. An executing command is
// moved to Canceling and decides its own outcome.
//
// # Completion Observers
//
//	unsubscribe := r.OnFinished(func(ctx context.Context, info command.Info) error {
//		log.Info("finished", logger.CommandID(info.ID), logger.State(info.State))
//		return nil
//	})
//	defer unsubscribe()
//
// Observers run once per command on the coordinator goroutine, before a
// delete-immediately command is evicted. A command frees its concurrency slot
// before observers see it, so a slow observer delays notifications but never
// dispatch. Errors and panics are logged and counted per observer in Stats,
// never propagated.
//
// # Configuration
//
//	var cfg runner.Config
//	config.MustLoad(&cfg)
//	r := runner.NewFromConfig(cfg, runner.WithLogger(log))
//
// # Lifecycle
//
// New starts the coordinator. Close stops admission, cancels queued commands
// and waits for executing ones up to the shutdown timeout. Run adapts the
// runner to errgroup:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(r.Run(ctx))
package runner
