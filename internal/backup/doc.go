// Package backup takes and restores full-file snapshots of the library
// database.
//
// Snapshots are written next to the live file as
// "<name>_backup<yyyyMMdd_HHmmss>_<seq>" and recorded in
// "<name>.backups.json". Each record carries a strictly increasing sequence
// number, a UUIDv7 identifier, the schema version it was taken at and a
// BLAKE2b-256 checksum that is verified before a restore. The newest
// snapshot is chosen by sequence number, never by directory listing order.
package backup
