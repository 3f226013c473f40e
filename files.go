package auth

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsDir returns the embedded migrations directory for a dialect
func MigrationsDir(dialect string) string {
	return "data/sql/migrations/" + dialect
}
