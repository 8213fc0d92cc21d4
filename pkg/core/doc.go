// Package core provides the fundamental types and interfaces for the cronq module.
//
// This package contains:
//   - The Run data model with GORM annotations
//   - The Storage interface defining the persistence contract
//   - The Clock interface for deterministic time in tests
//   - Event types for scheduler monitoring
//   - Error types shared across packages
//
// Most users should import the root package github.com/cristianfalcone/cronq
// instead of this package directly.
package core
