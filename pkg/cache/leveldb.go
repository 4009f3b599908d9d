package cache

import (
	"context"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
)

const backendLevelDB = "leveldb"

// levelDBEntryPrefix namespaces entry documents inside the database.
const levelDBEntryPrefix = "e:"

// LevelDBStore keeps entries in an embedded LevelDB database.
type LevelDBStore struct {
	db *leveldb.DB
}

// OpenLevelDB opens or creates the database at path.
func OpenLevelDB(path string) (*LevelDBStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, storageErr(backendLevelDB, "open", "", err)
	}
	return &LevelDBStore{db: db}, nil
}

// Get retrieves a cache entry by key.
func (s *LevelDBStore) Get(_ context.Context, key string) (entry *Entry, err error) {
	defer func() { recordGet(backendLevelDB, err) }()

	data, err := s.db.Get([]byte(levelDBEntryPrefix+key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, ErrCacheMiss
		}
		return nil, storageErr(backendLevelDB, "get", key, err)
	}
	return decodeEntry(data)
}

// Put stores a cache entry.
func (s *LevelDBStore) Put(_ context.Context, key string, entry *Entry) (err error) {
	defer func() { recordPut(backendLevelDB, err) }()

	data, err := encodeEntry(entry)
	if err != nil {
		return storageErr(backendLevelDB, "put", key, err)
	}
	if err := s.db.Put([]byte(levelDBEntryPrefix+key), data, nil); err != nil {
		return storageErr(backendLevelDB, "put", key, err)
	}
	return nil
}

// Delete removes a cache entry.
func (s *LevelDBStore) Delete(_ context.Context, key string) (err error) {
	defer func() { recordDelete(backendLevelDB, err) }()

	if err := s.db.Delete([]byte(levelDBEntryPrefix+key), nil); err != nil {
		return storageErr(backendLevelDB, "delete", key, err)
	}
	return nil
}

// Ping fails once the database has been closed.
func (s *LevelDBStore) Ping(_ context.Context) error {
	if _, err := s.db.GetProperty("leveldb.num-files-at-level0"); err != nil {
		return storageErr(backendLevelDB, "ping", "", err)
	}
	return nil
}

// Close closes the database.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
