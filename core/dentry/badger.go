package dentry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Config holds configuration for the dentry database.
type Config struct {
	// Path is the directory holding the badger files.
	Path string `mapstructure:"path" default:"./data/dentry" validate:"required_without=InMemory"`
	// InMemory keeps every entry in memory only (tests, dry runs).
	InMemory bool `mapstructure:"in_memory" default:"false"`
}

// BadgerStore implements Store on top of BadgerDB.
//
// Every method runs in a single badger transaction, so moves between keys
// (rename, recycle) are atomic with respect to other readers.
type BadgerStore struct {
	db *badger.DB
}

// Open opens or creates the dentry database described by cfg.
func Open(ctx context.Context, cfg Config) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open dentry store at %q: %w", cfg.Path, err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func getEntry(txn *badger.Txn, key []byte) (*Entry, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var e Entry
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &e)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode dentry: %w", err)
	}
	return &e, nil
}

func putEntry(txn *badger.Txn, key []byte, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode dentry: %w", err)
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *BadgerStore) Lookup(ctx context.Context, parentID, name string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var e *Entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = getEntry(txn, keyLive(parentID, name))
		return err
	})
	return e, err
}

func (s *BadgerStore) Create(ctx context.Context, e *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := keyLive(e.ParentCloudID, e.Name)
	return s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, key)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%s/%s: %w", e.ParentCloudID, e.Name, ErrExists)
		}
		return putEntry(txn, key, e)
	})
}

func (s *BadgerStore) LookupAndUpdate(ctx context.Context, parentID, name string, fn func(e *Entry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := keyLive(parentID, name)
	return s.db.Update(func(txn *badger.Txn) error {
		e, err := getEntry(txn, key)
		if err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
		e.ParentCloudID, e.Name = parentID, name
		return putEntry(txn, key, e)
	})
}

func (s *BadgerStore) Rename(ctx context.Context, old *Entry, newParentID, newName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	oldKey := keyLive(old.ParentCloudID, old.Name)
	newKey := keyLive(newParentID, newName)
	if string(oldKey) == string(newKey) {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e, err := getEntry(txn, oldKey)
		if err != nil {
			return err
		}
		found, err := exists(txn, newKey)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%s/%s: %w", newParentID, newName, ErrExists)
		}
		if err := txn.Delete(oldKey); err != nil {
			return err
		}
		e.ParentCloudID, e.Name = newParentID, newName
		return putEntry(txn, newKey, e)
	})
}

func (s *BadgerStore) LookupAndRemove(ctx context.Context, parentID, name string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := keyLive(parentID, name)
	var e *Entry
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		if e, err = getEntry(txn, key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	return e, err
}

func (s *BadgerStore) MoveIntoRecycle(ctx context.Context, parentID, name string, rowID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	liveKey := keyLive(parentID, name)
	binKey := keyRecycle(name, parentID, rowID)
	return s.db.Update(func(txn *badger.Txn) error {
		e, err := getEntry(txn, liveKey)
		if err != nil {
			return err
		}
		if err := txn.Delete(liveKey); err != nil {
			return err
		}
		e.RowID = rowID
		return putEntry(txn, binKey, e)
	})
}

func (s *BadgerStore) RemoveFromRecycle(ctx context.Context, name, parentID string, rowID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	binKey := keyRecycle(name, parentID, rowID)
	liveKey := keyLive(parentID, name)
	return s.db.Update(func(txn *badger.Txn) error {
		e, err := getEntry(txn, binKey)
		if err != nil {
			return err
		}
		found, err := exists(txn, liveKey)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("%s/%s: %w", parentID, name, ErrExists)
		}
		if err := txn.Delete(binKey); err != nil {
			return err
		}
		return putEntry(txn, liveKey, e)
	})
}

func (s *BadgerStore) LookupRecycled(ctx context.Context, name, parentID string, rowID int64) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var e *Entry
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		e, err = getEntry(txn, keyRecycle(name, parentID, rowID))
		return err
	})
	return e, err
}

func (s *BadgerStore) CreateRecycled(ctx context.Context, e *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := keyRecycle(e.Name, e.ParentCloudID, e.RowID)
	return s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, key)
		if err != nil {
			return err
		}
		if found {
			return fmt.Errorf("recycled %s/%s: %w", e.ParentCloudID, e.Name, ErrExists)
		}
		return putEntry(txn, key, e)
	})
}

func (s *BadgerStore) RemoveRecycled(ctx context.Context, name, parentID string, rowID int64) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := keyRecycle(name, parentID, rowID)
	var e *Entry
	err := s.db.Update(func(txn *badger.Txn) error {
		var err error
		if e, err = getEntry(txn, key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	return e, err
}

func (s *BadgerStore) Stats(ctx context.Context) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, err
	}
	var st Stats
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		live := []byte(prefixLive)
		for it.Seek(live); it.ValidForPrefix(live); it.Next() {
			st.Live++
		}
		bin := []byte(prefixRecycle)
		for it.Seek(bin); it.ValidForPrefix(bin); it.Next() {
			st.Recycled++
		}
		return nil
	})
	return st, err
}

func (s *BadgerStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.DropPrefix([]byte(prefixLive), []byte(prefixRecycle))
}
