// Package migrations holds the schema history. SQL migrations are embedded,
// data migrations are registered as Go functions.
package migrations

import (
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var FS embed.FS

// GoMigrations returns the migrations that need Go code to run.
func GoMigrations() []*goose.Migration {
	return []*goose.Migration{
		goose.NewGoMigration(2,
			&goose.GoFunc{RunTx: FoldLegacyVotes},
			&goose.GoFunc{RunTx: downFoldLegacyVotes},
		),
	}
}
