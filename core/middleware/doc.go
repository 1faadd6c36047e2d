// Package middleware groups the admin server's fiber middleware.
//
//   - auth: rejects requests whose X-API-Key header does not match the
//     configured key.
//   - rayid: gives every request a ray id, stored in the fiber locals and
//     echoed in the response header, which logger.WithRayID picks up.
package middleware
