// Package ir defines the intermediate representation produced by
// expression extraction.
//
// The IR is a small, closed set of node kinds: names, literals, unary
// and binary operations, and call sites. Both Expr and LitValue are
// sealed interfaces - only types in this package implement them - so
// consumers can type-switch exhaustively and adding or removing a
// supported construct is a compile-time-checked change.
//
// IR values are created per extraction and are read-only afterwards.
// They hold no resources and are safe to share across goroutines once
// extraction has returned.
package ir
