// Package logger provides structured logging built on log/slog: a configurable
// constructor, context-aware attribute extraction and attribute helpers that
// keep key names consistent across the scheduler.
//
// # Basic Usage
//
//	log := logger.New(
//		logger.WithDevelopment("cmdrunner"),
//		logger.WithLevel(slog.LevelDebug),
//	)
//
//	log.Info("command finished",
//		logger.CommandID(info.ID),
//		logger.CommandName(info.Name),
//		logger.State(info.State),
//		logger.Duration(info.Duration()),
//	)
//
// # Environments
//
//	logger.New(logger.WithDevelopment("cmdrunner")) // text, debug
//	logger.New(logger.WithStaging("cmdrunner"))     // JSON, info
//	logger.New(logger.WithProduction("cmdrunner"))  // JSON, info
//
// # Context Values
//
// Attributes can be pulled from the context of *Context log calls:
//
//	log := logger.New(
//		logger.WithJSONFormatter(),
//		logger.WithContextValue("tenant", tenantKey{}),
//	)
//	log.InfoContext(ctx, "admitted")
//
// # Nil Safety
//
// Error, Errors and State return an empty attribute for nil input,
// which slog drops, so callers never need nil checks:
//
//	log.Error("observer failed", logger.Error(err))
//
// # Global Logger
//
//	logger.SetAsDefault(log)
package logger
