// Package sqlite provides a SQLite-backed notebook store.
package sqlite
