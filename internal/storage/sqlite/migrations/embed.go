package migrations

import "embed"

// FS contains embedded SQLite migrations for actor sheets and group settings.
//
//go:embed *.sql
var FS embed.FS
