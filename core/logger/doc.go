// Package logger builds the zap logger of the sync daemon.
//
// Every line carries the service name. Lines written by the reconciliation
// engine are tagged with the user id and bundle of the synced cloud disk
// (WithSession); lines written by admin API handlers carry the request's
// ray id (WithRayID), so one request can be followed across the log.
//
// Level is one of debug, info, warn or error, and output is json unless
// Format selects console.
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	engineLog := logger.WithSession(log, 100, "com.example.disk")
//	engineLog.Info("Pull batch applied")
package logger
