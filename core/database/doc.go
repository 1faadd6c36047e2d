// Package database opens the relational store that backs the cloud-disk
// table and inspects its schema.
//
// It wraps GORM so the rest of the module only chooses a driver in
// configuration: sqlite for a single-device store on disk, mysql for a
// shared server.
//
// # Connect
//
// Connect opens the configured dialect, sizes the connection pool and
// pings the database within TimeoutSeconds. A sqlite database is limited
// to one open connection.
//
// # Schema Inspection
//
// GetTableColumns reads the live column list (PRAGMA table_info on sqlite,
// SHOW COLUMNS on mysql). MissingColumns compares it to an expected list
// and is used at startup after migrations.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	missing, err := database.MissingColumns(db, "CloudDisk", models.AllColumns)
package database
