// Package logging provides structured logging for glucometer.
//
// This package wraps a zap logger with package-level helpers so that protocol
// code can log without carrying a logger around. Logging is silent unless a
// level is passed to Initialize or GLUCOMETER_LOG_LEVEL is set, which keeps
// CLI output clean by default.
//
// # Log Levels
//
//   - Debug: raw serial lines (hex and ascii), every state transition
//   - Info: sessions started and finished, batches committed, ports opened
//   - Warn: dropped result lines, checksum mismatches, port retries
//   - Error: handshake failures, store errors
//
// # Domain Helpers
//
// Serial traffic:
//
//	logging.LogLine(sessionID, "rx", raw)
//	logging.LogSerialEvent("/dev/ttyUSB0", "opened")
//
// State machine tracing:
//
//	logging.LogTransition(sessionID, "DeviceType", "SoftwareRevision")
//
// # Initialization
//
//	if err := logging.Initialize(flagLogLevel); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// All functions are safe for concurrent use.
package logging
