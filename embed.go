// Package turbostart holds assets embedded into the turbostart binary.
package turbostart

import "embed"

// MigrationsFS contains the SQL schema migrations applied at startup.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
