// Package store persists an audit log of validation runs in SQLite.
//
// The core analysis never touches the store; it exists for the CLI
// host, which opts in per invocation. Runs are content-fingerprinted,
// so the determinism guarantee of validation is directly observable in
// the log: re-checking an unchanged expression against an unchanged
// schema produces a row with identical fingerprints.
package store
