// Package command defines the schedulable unit of work used by the runner:
// a command with identity, priority, a guarded lifecycle and an append-only
// history of state changes, plus the executor contract for domain logic.
//
// # Lifecycle
//
// Every command moves through a fixed state machine:
//
//	created -> queued -> executing -> completed | canceled | error
//	   \          \          \
//	    +----------+----------+--> canceling -> completed | canceled | error
//
// Terminal states are final. Each transition appends a StateChange with a
// strictly increasing timestamp, so the history is always ordered.
//
// # Executors
//
// Domain logic implements Executor directly or is built from a typed function:
//
//	type ResizeArgs struct {
//		URL   string `json:"url"`
//		Width int    `json:"width"`
//	}
//
//	type ResizeResult struct {
//		Location string `json:"location"`
//	}
//
//	resize := command.NewHandler("images.resize",
//		func(ctx context.Context, args ResizeArgs) (ResizeResult, error) {
//			if err := command.CheckCanceled(ctx); err != nil {
//				return ResizeResult{}, err
//			}
//			return ResizeResult{Location: "s3://bucket/resized.png"}, nil
//		},
//		command.WithDeleteImmediately(),
//	)
//
//	cmd, err := command.New(resize,
//		command.WithArgs(ResizeArgs{URL: "https://example.com/a.png", Width: 640}),
//		command.WithPriority(command.PriorityHigh),
//	)
//
// Arguments and results cross the boundary as JSON. Args decodes the payload
// (an empty payload yields the zero value); a payload of the wrong shape fails
// with ErrInvalidArgument.
//
// # Outcomes
//
// Run maps the executor's return value onto a terminal state:
//
//   - nil ends Completed and keeps the published result
//   - ErrCanceled ends Canceled
//   - any other error, or a panic, ends Error; the failure is wrapped in
//     ErrExecutionFailed and kept on the snapshot
//
// Return a *Failure to attach an application-defined code.
//
// # Cancellation
//
// RequestCancel is cooperative. It flags the command and moves it to canceling.
// Unless the kind uses CancelFlagOnly, the run context is canceled as well.
// Executors poll CheckCanceled between steps.
package command
