// Package migrations embeds the versioned SQL schema for each supported
// database so the binary carries its own schema.
package migrations

import "embed"

// SqliteMigrations holds sqlite/*.sql, applied in filename order.
//
//go:embed sqlite/*.sql
var SqliteMigrations embed.FS

// PostgresMigrations holds postgres/*.sql, applied in filename order.
//
//go:embed postgres/*.sql
var PostgresMigrations embed.FS
