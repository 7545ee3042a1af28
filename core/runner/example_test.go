package runner_test

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/cmdrunner/core/command"
	"github.com/dmitrymomot/cmdrunner/core/runner"
)

type greetArgs struct {
	Name string `json:"name"`
}

type greetResult struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Example shows a command kind that is evicted as soon as it finishes.
func Example() {
	r := runner.New(runner.WithConcurrency(2))
	defer r.Close()

	greet := command.NewHandler("greet", func(ctx context.Context, args greetArgs) (greetResult, error) {
		return greetResult{Code: 999, Message: "hello, " + args.Name}, nil
	}, command.WithDeleteImmediately())

	finished := make(chan command.Info, 1)
	r.OnFinished(func(ctx context.Context, info command.Info) error {
		finished <- info
		return nil
	})

	cmd, err := command.New(greet, command.WithArgs(greetArgs{Name: "gopher"}))
	if err != nil {
		fmt.Println(err)
		return
	}
	if _, err := r.Admit(cmd); err != nil {
		fmt.Println(err)
		return
	}

	info := <-finished
	res, _ := command.Result[greetResult](info)
	fmt.Println(info.State, res.Code, res.Message)

	// Output: completed 999 hello, gopher
}

// Example_failure shows a domain failure with an application code.
func Example_failure() {
	r := runner.New()
	defer r.Close()

	charge := command.NewAction("billing.charge", func(ctx context.Context, args struct{}) error {
		return command.NewFailure(888, "card declined")
	})

	id, _ := r.Admit(command.MustNew(charge))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	info, err := r.Wait(ctx, id)
	if err != nil {
		fmt.Println(err)
		return
	}

	failure, _ := info.Failure()
	fmt.Println(info.State, failure.Code, failure.Message)

	// Output: error 888 card declined
}

// Example_cancel shows cooperative cancellation of a long-running command.
func Example_cancel() {
	r := runner.New()
	defer r.Close()

	started := make(chan struct{})
	export := command.NewAction("reports.export", func(ctx context.Context, args struct{}) error {
		close(started)
		for {
			if err := command.CheckCanceled(ctx); err != nil {
				return err
			}
			time.Sleep(time.Millisecond)
		}
	}, command.WithCancelMode(command.CancelFlagOnly))

	id, _ := r.Admit(command.MustNew(export))
	<-started
	r.Cancel(id)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	info, _ := r.Wait(ctx, id)
	fmt.Println(info.State)
	for _, h := range info.History {
		fmt.Println(h.State)
	}

	// Output:
	// canceled
	// created
	// queued
	// executing
	// canceling
	// canceled
}
