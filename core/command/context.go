package command

import "context"

type commandCtx struct{}

func withCommand(ctx context.Context, c *Command) context.Context {
	return context.WithValue(ctx, commandCtx{}, c)
}

// FromContext returns the command being run on ctx.
// Returns nil outside of an executor.
func FromContext(ctx context.Context) *Command {
	if c, ok := ctx.Value(commandCtx{}).(*Command); ok {
		return c
	}
	return nil
}

// CheckCanceled is a shortcut for executors that only hold the run context.
// It returns ErrCanceled once cancellation was requested for the command on ctx.
func CheckCanceled(ctx context.Context) error {
	if c := FromContext(ctx); c != nil {
		return c.CheckCanceled()
	}
	return ctx.Err()
}
