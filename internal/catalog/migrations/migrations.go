// Package migrations embeds the goose SQL migrations for the profiles
// catalogue. The schema is written to be valid for both sqlite and postgres
// (times as unix-second BIGINT, binary values hex-encoded as TEXT).
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
