// Package schedule admits commands on cron schedules.
//
// Each entry pairs a cron spec with a factory that builds a fresh command for
// every fire. Specs use the standard five fields with an optional leading
// seconds field, or descriptors such as "@hourly" and "@every 30s".
//
//	s, err := schedule.New(r, schedule.WithLogger(log))
//	if err != nil {
//		return err
//	}
//
//	err = s.Add("reports.nightly", "0 3 * * *", func(ctx context.Context) (*command.Command, error) {
//		return command.New(exportReport, command.WithPriority(command.PriorityLow))
//	}, schedule.WithSkipIfRunning())
//
//	g.Go(s.Run(ctx))
//
// WithSkipIfRunning drops a fire while the command admitted by the previous
// fire of the same entry is still tracked and not terminal.
package schedule
