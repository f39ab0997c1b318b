// Package migrations embeds the SmartHome SQL schema into the binary.
package migrations

import "embed"

// FS holds every *.up.sql and *.down.sql file at its root.
//
//go:embed *.sql
var FS embed.FS
