// Package lock keeps two deploys from running against the same checkout.
//
// The lock is a PID file in the temp directory. A lock whose process is gone
// is considered stale and taken over.
package lock
