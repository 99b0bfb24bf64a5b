package migrations

import "embed"

//go:embed tracking/*.sql
var TrackingFS embed.FS
