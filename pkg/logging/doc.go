// Package logging provides the structured logger used across gatekeep.
//
// It is a thin layer over log/slog that tags every entry with the subsystem
// that produced it, so output from the credential store, the gateway and the
// session manager can be filtered independently.
//
// # Usage
//
//	logging.Init(logging.LevelInfo, os.Stderr)
//
//	logging.Info("Session", "Session valid until %s", expiresAt)
//	logging.Debug("Store", "Backend ready in %s", logging.Since(start))
//	logging.Error("Gateway", err, "Failed to open browser")
//
// Security relevant events (credentials stored or removed) go through Audit,
// which emits a SECURITY_AUDIT line with an event attribute. Token values are
// never passed to the logger.
package logging
