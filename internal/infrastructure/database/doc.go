// Package database owns the SQLite file backing compile history.
//
// Open configures WAL mode, a busy timeout and a single pooled
// connection (SQLite has one writer), restricts the file to the add-on
// user, and verifies connectivity. Migrate applies the *.up.sql files
// the migrations package registers, one transaction per step, recording
// each in schema_migrations.
//
// The add-on only migrates forward. Down files ship next to the up
// files as documented recovery steps for an operator, but no code path
// executes them; schema changes are written additively (nullable or
// defaulted columns, no drops or renames) so an older binary can still
// read a newer file.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
