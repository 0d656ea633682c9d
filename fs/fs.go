// Package appfs embeds the static files the binaries need: DB migrations, email templates & seed content.
package appfs

import "embed"

//go:embed migrations assets seed
var FS embed.FS

const (
	MigrationsDir     = "migrations"
	EmailTemplatesDir = "assets/templates/email"
	SeedFile          = "seed/demo.json"
)
