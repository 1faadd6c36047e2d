// Package syncstatus is the admin API of the sync engine.
//
// Routes, all under /sync:
//
//   - GET /status: row counts by dirty type and position, fail-set sizes
//     and dentry counts. Reports are cached for the configured TTL and
//     concurrent rebuilds collapse into one.
//   - GET /retry: ids whose pull was deferred.
//   - POST /download/:cloudId: fetch content into the local cache.
//   - DELETE /cache/:cloudId: drop the local copy of uploaded content.
//
// Engine errors map to 400 for invalid arguments, 409 for files busy
// being written and 404 for content missing from object storage.
package syncstatus
