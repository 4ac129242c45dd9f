// Package migrations embeds the credential store schema.
package migrations

import "embed"

//go:embed *.sql
var Files embed.FS
