// Package config loads and validates the application configuration.
//
// Values come from the environment, optionally seeded from a .env file, with
// defaults taken from each field's `default` tag. Nested keys map to upper
// snake case variables, so sync.data_dir is read from SYNC_DATA_DIR.
//
// Sections: Server, Storage, Log, Database, Dentry, Sync and Metrics.
// LoadConfig rejects a configuration whose `validate` tags fail.
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
