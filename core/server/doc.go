// Package server holds the admin HTTP server configuration.
//
// The Config struct defines the listen port, the API key checked by the
// auth middleware, how long the sync status report is cached and how long
// a graceful shutdown may take. It is embedded by core/config and read by
// the start command.
package server
