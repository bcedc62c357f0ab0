package migrations

import "github.com/uptrace/bun/migrate"

// Migrations holds the points module's schema changes. They reference the
// servers, roles and users tables and run after the guild and user modules.
var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
