// Package migrations holds the sercha-intel schema as versioned SQL files
// named NNN_description.up.sql. Store applies them in version order.
package migrations

import "embed"

// FS holds the migration files.
//
//go:embed *.sql
var FS embed.FS
