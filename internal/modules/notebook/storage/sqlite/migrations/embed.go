package migrations

import "embed"

// FS contains embedded SQLite migrations for notebook storage.
//
//go:embed *.sql
var FS embed.FS
