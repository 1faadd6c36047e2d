package dentry

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when no entry exists under the requested key.
	ErrNotFound = errors.New("dentry not found")
	// ErrExists is returned when creating or renaming onto an occupied key.
	ErrExists = errors.New("dentry already exists")
)

// Position values mirror the content position of the matching local row.
const (
	PositionLocal         = 1
	PositionCloud         = 2
	PositionLocalAndCloud = 3
)

// Entry is a directory entry consumed by the virtual filesystem layer.
// Live entries are keyed by (ParentCloudID, Name); recycled entries by
// (Name, ParentCloudID, RowID).
type Entry struct {
	ParentCloudID string `json:"parent_cloud_id"`
	Name          string `json:"name"`
	CloudID       string `json:"cloud_id"`
	IsDir         bool   `json:"is_dir"`
	Size          int64  `json:"size"`
	Atime         int64  `json:"atime"`
	Mtime         int64  `json:"mtime"`
	Position      int    `json:"position"`
	RowID         int64  `json:"row_id"`
}

// Stats counts entries per namespace.
type Stats struct {
	Live     int `json:"live"`
	Recycled int `json:"recycled"`
}

// Store is the dentry capability used by the reconciliation engine.
type Store interface {
	// Lookup returns the live entry for (parentID, name).
	Lookup(ctx context.Context, parentID, name string) (*Entry, error)
	// Create adds a live entry. Fails with ErrExists on an occupied key.
	Create(ctx context.Context, e *Entry) error
	// LookupAndUpdate applies fn to the live entry and stores the result.
	// fn must not change the entry's key fields.
	LookupAndUpdate(ctx context.Context, parentID, name string, fn func(e *Entry) error) error
	// Rename moves a live entry to (newParentID, newName).
	Rename(ctx context.Context, old *Entry, newParentID, newName string) error
	// LookupAndRemove deletes the live entry and returns it.
	LookupAndRemove(ctx context.Context, parentID, name string) (*Entry, error)

	// MoveIntoRecycle moves the live entry into the recycle namespace.
	MoveIntoRecycle(ctx context.Context, parentID, name string, rowID int64) error
	// RemoveFromRecycle restores a recycled entry to the live namespace.
	RemoveFromRecycle(ctx context.Context, name, parentID string, rowID int64) error
	// LookupRecycled returns an entry from the recycle namespace.
	LookupRecycled(ctx context.Context, name, parentID string, rowID int64) (*Entry, error)
	// CreateRecycled adds an entry directly to the recycle namespace.
	CreateRecycled(ctx context.Context, e *Entry) error
	// RemoveRecycled permanently deletes a recycled entry and returns it.
	RemoveRecycled(ctx context.Context, name, parentID string, rowID int64) (*Entry, error)

	// Stats counts entries in both namespaces.
	Stats(ctx context.Context) (Stats, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
	// Close releases the underlying database.
	Close() error
}
