// Package storage provides the GORM-backed store for the cronq module.
//
// GormStorage implements core.Storage against any GORM dialect. Claim
// reads use FOR UPDATE SKIP LOCKED on dialects that support it
// (PostgreSQL, MySQL); on SQLite the single-writer transaction gives the
// same exactly-one-claimer guarantee without row locks. Named
// mutual-exclusion slots use PostgreSQL advisory locks where available
// and fall back to a lock table with expiry elsewhere.
package storage
