// Package migrations embeds the SQL schema so binaries can migrate without
// the source tree.
package migrations

import "embed"

// Files holds every NNNNNN_name.{up,down}.sql pair of this directory.
//
//go:embed *.sql
var Files embed.FS
