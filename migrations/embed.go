// Package migrations embeds the SQL schema so a deployed binary carries it.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
