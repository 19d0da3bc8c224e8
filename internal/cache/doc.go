// Package cache persists rename decisions in SQLite and exposes lookups for
// driving later runs.
//
// Each record is keyed by the original source path and carries the resolved
// series id, season and episode labels, and the destination name the file was
// renamed to. Upserts merge field by field so the resolver can record the
// series id before the planner knows the destination, and a reverse lookup on
// destination lets the planner detect when another source already claimed a
// name. Records survive restarts; a forgotten path is simply re-resolved on
// the next run.
//
// A flock-based Lock serializes whole runs against the database so cache
// writes from concurrent invocations cannot interleave.
package cache
