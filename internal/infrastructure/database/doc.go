// Package database provides SQLite storage for the entity manager.
//
// Two tables live here: naming_overrides (when the override backend is
// sqlite) and rename_history (every applied rename). Schema changes ship as
// embedded migrations:
//
//	migrations/
//	  20260301_090000_naming_overrides.up.sql
//	  20260301_090000_naming_overrides.down.sql
//	  20260301_090100_rename_history.up.sql
//	  ...
//
// Each migration is applied once, in version order, inside its own
// transaction, and recorded in schema_migrations.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
package database
