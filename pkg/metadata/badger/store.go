// Package badger implements a persistent metadata store backed by BadgerDB.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/mcav91/partfs/pkg/metadata"
)

// Key Schema
//
//	Prefix  Key                Value
//	"f:"    f:<path>           file Entry (JSON)
//	"d:"    d:<dir path>       directory rollup Entry (JSON)
//
// Path keys use the slash-separated object path as-is, so the database is
// self-documenting and range scans under a directory prefix are cheap.
const (
	filePrefix = "f:"
	dirPrefix  = "d:"
)

// ErrNotFound indicates no entry exists for the requested path.
var ErrNotFound = errors.New("metadata entry not found")

// BadgerStore implements metadata.Updater using BadgerDB for persistence.
//
// Each Update runs in a single Badger transaction: the file entry is
// replaced and the size delta plus mtime are rolled up through every parent
// directory. Transactions give the rollup all-or-nothing semantics, so a
// crash never leaves a parent chain half-updated.
//
// Thread Safety:
// Badger transactions provide isolation; the upload pipeline additionally
// serializes same-path updates under its exclusive lock window.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens (or creates) a metadata database at dbPath.
//
// An empty dbPath opens an in-memory database, used by tests and
// configurations that don't need metadata persistence.
func NewBadgerStore(ctx context.Context, dbPath string) (*BadgerStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dbPath)
	opts.Logger = nil
	if dbPath == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}

	return &BadgerStore{db: db}, nil
}

// Close releases the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Update records the committed file entry and rolls the size delta and mtime
// up through all parent directories.
func (s *BadgerStore) Update(ctx context.Context, filePath string, entry metadata.Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		// Size rollups need the previous size to compute the delta for an
		// overwritten file.
		var previousSize int64
		if old, err := readEntry(txn, filePrefix+filePath); err == nil {
			previousSize = old.Size
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}

		if err := writeEntry(txn, filePrefix+filePath, entry); err != nil {
			return err
		}

		delta := entry.Size - previousSize
		for dir := parentDir(filePath); ; dir = parentDir(dir) {
			rollup, err := readEntry(txn, dirPrefix+dir)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}

			rollup.Size += delta
			if entry.MTime.After(rollup.MTime) {
				rollup.MTime = entry.MTime
			}
			rollup.ETag = ""

			if err := writeEntry(txn, dirPrefix+dir, rollup); err != nil {
				return err
			}

			if dir == "." {
				break
			}
		}

		return nil
	})
}

// LookupFile returns the stored entry for a file path.
func (s *BadgerStore) LookupFile(ctx context.Context, filePath string) (*metadata.Entry, error) {
	return s.lookup(ctx, filePrefix+filePath)
}

// LookupDir returns the rollup entry for a directory path. The store root is
// addressed as ".".
func (s *BadgerStore) LookupDir(ctx context.Context, dirPath string) (*metadata.Entry, error) {
	return s.lookup(ctx, dirPrefix+dirPath)
}

func (s *BadgerStore) lookup(ctx context.Context, key string) (*metadata.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entry metadata.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		found, err := readEntry(txn, key)
		if err != nil {
			return err
		}
		entry = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// parentDir returns the parent of a slash-separated path, with "." as the
// root terminator (matching path.Dir).
func parentDir(p string) string {
	return path.Dir(p)
}

func readEntry(txn *badger.Txn, key string) (metadata.Entry, error) {
	var entry metadata.Entry

	item, err := txn.Get([]byte(key))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return entry, fmt.Errorf("key %s: %w", key, ErrNotFound)
		}
		return entry, fmt.Errorf("failed to read metadata key %s: %w", key, err)
	}

	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entry)
	})
	if err != nil {
		return entry, fmt.Errorf("failed to decode metadata key %s: %w", key, err)
	}

	return entry, nil
}

func writeEntry(txn *badger.Txn, key string, entry metadata.Entry) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode metadata key %s: %w", key, err)
	}

	if err := txn.Set([]byte(key), encoded); err != nil {
		return fmt.Errorf("failed to write metadata key %s: %w", key, err)
	}

	return nil
}
