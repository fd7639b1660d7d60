package database

import (
	"embed"
	"io/fs"
	"path"
)

//go:embed migrations
var migrations embed.FS

// MigrationsFS returns the compiled-in migration tree. Each dialect keeps its
// own directory under migrations/.
func MigrationsFS() fs.FS {
	return migrations
}

// MigrationsDir names the directory inside MigrationsFS for dialect.
func MigrationsDir(dialect Dialect) string {
	return path.Join("migrations", string(dialect))
}
