// Package logging assembles structured slog loggers and formatting helpers used
// across datasetup.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and stamps every record of a provisioning run with a run_id so the
// console output of one run can be matched to its history entry. The package
// also provides a no-op logger for tests and wiring code that cannot fail.
package logging
