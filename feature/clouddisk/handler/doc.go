// Package handler is the reconciliation engine of one user's cloud disk.
//
// A Handler owns the CloudDisk table (through rdb.Store) and the dentry
// store the virtual filesystem reads. Every change that touches both runs
// the relational write first and the dentry write second inside one store
// transaction, so a dentry failure rolls the row back. Unlinking cached
// content happens last; when it fails the dentry change is undone by hand
// and the row rolls back with the transaction.
//
// Pull: OnFetchRecords classifies a batch with the reconcile package and
// inserts, updates, recycles or deletes rows. Rows with pending local edits
// win over cloud updates. A live sibling that holds an incoming name is
// renamed to "name(N).ext".
//
// Push: the Get*Records methods build the next outgoing batch and the
// On*Records methods apply the server's answers. Rows that fail in either
// step are skipped for the rest of the session until Reset.
//
// Content: GetDownloadAsset and OnDownloadSuccess bracket a download,
// CleanCache evicts it again, and Clean wipes cloud state on sign-out.
package handler
