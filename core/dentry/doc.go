// Package dentry stores the directory entries consumed by the virtual
// filesystem layer.
//
// Entries live in one of two namespaces:
//   - live: keyed by (parent cloud id, name), at most one entry per key
//   - recycle: soft-deleted entries keyed by (name, parent cloud id, row id)
//
// The reconciliation engine mutates entries inside its relational-store
// transactions so that both views change together. BadgerStore persists
// entries in BadgerDB; see keys.go for the key layout.
//
// # Usage
//
//	store, err := dentry.Open(ctx, dentry.Config{Path: "/data/dentry"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//	err = store.Create(ctx, &dentry.Entry{ParentCloudID: "root", Name: "a.txt", CloudID: "A"})
package dentry
