// Package migrations embeds the identity store schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
