// Package event provides a small synchronous in-process event bus.
//
// Handlers are typed with generics and subscribed by event name; the bus runs
// them in the publisher's goroutine, recovers panics and aggregates errors.
//
//	bus := event.NewBus(event.WithLogger(log))
//
//	unsubscribe, err := bus.Subscribe(event.NewHandler("command.finished",
//		func(ctx context.Context, info command.Info) error {
//			log.Info("finished", "id", info.ID, "state", info.State)
//			return nil
//		}))
//	defer unsubscribe()
//
//	err = bus.Publish(ctx, "command.finished", info)
//
// Subscribe to Wildcard to receive every event.
package event
