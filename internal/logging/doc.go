// Package logging provides a simple leveled logging interface for Macaw
// Movies, backed by zap.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information (statement traces, hydration)
//   - INFO: General operational messages (open, migration steps, backups)
//   - WARN: Warning conditions (dangling references, best-effort fallbacks)
//   - ERROR: Error conditions (failed statements, failed restores)
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the LOG_LEVEL environment variable or
// [SetLevel] once configuration has been loaded.
package logging
