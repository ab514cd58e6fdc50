package migrations

import "embed"

// FS holds the PostgreSQL schema applied on startup.
//
//go:embed *.sql
var FS embed.FS
