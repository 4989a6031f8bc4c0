/*
Package log provides structured logging for the dataprocessor runtime using
zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific child loggers, a configurable level, and helpers for the
supervisor/manager/worker hierarchy. All logs include timestamps and can be
filtered by severity for production debugging.

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("supervisor starting")

	mgrLog := log.WithManager("lp-ingest")
	mgrLog.Info().Int("workers", 4).Msg("starting worker pool")

	workerLog := log.WithWorker("lp-ingest", 2)
	workerLog.Error().Err(err).Msg("process_data failed")

# Context loggers

  - WithComponent: generic component name
  - WithSupervisor: supervisor process name
  - WithManager: worker manager name
  - WithWorker: worker manager name + numeric worker id

# Design

A single package-level Logger is initialized once via Init and shared by
every package in this module; child loggers created with the With* helpers
attach structured fields without mutating the global instance.
*/
package log
