// Package migrations holds the numbered *.up.sql files applied by the
// SQLite store on open.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
