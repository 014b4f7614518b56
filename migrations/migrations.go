// Package migrations embeds the per-driver schema migrations applied by
// "promokeeper migrate up".
package migrations

import "embed"

// Files are applied in name order and checksummed once applied.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

//go:embed postgres/*.sql
var PostgresMigrations embed.FS
