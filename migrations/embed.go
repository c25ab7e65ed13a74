// Package migrations embeds the SQL migration files into the binary so
// the service can migrate its schema without the files being present on
// the filesystem.
package migrations

import (
	"embed"

	"github.com/openbreeze/breezer-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // Files are at root of embedded FS
}
