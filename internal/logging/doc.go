// Package logging provides a simple leveled logging interface for datalint.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (per-file skips, worker lifecycle)
//   - INFO: General operational messages (scan and batch progress)
//   - WARN: Warning conditions (row insert failures, unknown tokens)
//   - ERROR: Error conditions
//
// Nothing here exits the process. Failures travel back to the command as
// errors and the command picks the exit status.
//
// The initial level comes from the DATALINT_LOG_LEVEL environment variable
// (or DEBUG=1). The CLI overrides it with SetLevel when --log-level is given.
package logging
