// Package migrations embeds the goose SQL migrations for per-profile record
// stores. Every payload column holds ciphertext; there is no plaintext
// column in the schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
