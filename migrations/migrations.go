// Package migrations embeds the versioned SQL files applied at startup.
// Schema files live in one directory per dialect; seed content is portable
// SQL shared by both.
package migrations

import "embed"

//go:embed sqlite/*.sql postgres/*.sql seed/*.sql
var FS embed.FS

const (
	SQLiteDir   = "sqlite"
	PostgresDir = "postgres"
	SeedDir     = "seed"
)
