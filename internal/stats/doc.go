// Package stats persists ring statistics in a SQLite database.
//
// The daemon calls RecordRing once per fire; the CLI reads and resets the
// counters directly. WAL mode keeps concurrent reads from the stats command
// safe while the daemon holds the database open.
package stats
