// Package migrations holds the schema of the printdesk index. Files are
// applied in name order; *.down.sql files are kept for manual rollback.
package migrations

import "embed"

// FS holds the migration files.
//
//go:embed *.sql
var FS embed.FS
