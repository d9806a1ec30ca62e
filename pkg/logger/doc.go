// Package logger builds the *slog.Logger used across diskqueue and offers
// attribute helpers that keep queue log records uniform.
//
// New creates a logger from a set of Option functions (format, level, output,
// static attributes). The handler is wrapped in a decorator that appends
// attributes attached to a context with ContextWithAttrs, which is how the
// runner tags every record a job handler logs with the job id and reference.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithTextFormatter(),
//	    logger.WithVerbose(true),
//	    logger.WithAttr(logger.Component("runner")),
//	)
//	log.Info("job done", logger.QueueID("emails"), logger.Duration(elapsed))
//
// Error and Errors produce attributes only for non-nil errors, so
//
//	log.Info("finished", logger.Error(err))
//
// needs no nil check.
package logger
