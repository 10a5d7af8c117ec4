// Package migrations embeds the catalog read model schema.
package migrations

import "embed"

// FS holds every *.up.sql file applied by database.RunMigrations.
//
//go:embed *.sql
var FS embed.FS
