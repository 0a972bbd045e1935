// Package history persists one row per provisioning run, plus one row per
// method attempt, in a SQLite database under the state directory.
//
// The store follows the same conventions as the rest of datasetup's on-disk
// state: WAL journaling, a busy timeout with bounded retries, and a
// schema_version table that refuses to open databases written by a different
// schema.
package history
