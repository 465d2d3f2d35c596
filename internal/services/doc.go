// Package services defines shared utilities consumed by the upsert workflow
// and the Notion integration.
//
// Key responsibilities:
//   - Context helpers that stamp correlation identifiers and the target
//     database id for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     configuration problem from a rate limit, a schema mismatch, an upstream
//     failure, or a save whose follow-up comment was lost.
//
// Use these helpers when wiring new operations so error reporting stays
// uniform between the CLI and the internal packages.
package services
