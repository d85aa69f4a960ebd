package main

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// MetadataCache remembers the remote metadata of objects this tool uploaded so
// change detection can skip a remote lookup.
type MetadataCache interface {
	Lookup(container, name string) (RemoteObject, bool)
	Record(container string, obj RemoteObject) error
}

type BoltCache struct {
	db *bolt.DB
}

type cachedObject struct {
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
}

func OpenBoltCache(path string) (*BoltCache, error) {
	db, openErr := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if openErr != nil {
		return nil, fmt.Errorf("opening metadata cache %s: %w", path, openErr)
	}
	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

func (c *BoltCache) Lookup(container, name string) (RemoteObject, bool) {
	var obj RemoteObject
	found := false
	viewErr := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(container))
		if bucket == nil {
			return nil
		}
		value := bucket.Get([]byte(name))
		if value == nil {
			return nil
		}
		var cached cachedObject
		if err := json.Unmarshal(value, &cached); err != nil {
			return err
		}
		obj = RemoteObject{Name: name, Size: cached.Size, ModTime: cached.ModTime}
		found = true
		return nil
	})
	if viewErr != nil {
		return RemoteObject{}, false
	}
	return obj, found
}

func (c *BoltCache) Record(container string, obj RemoteObject) error {
	value, marshalErr := json.Marshal(cachedObject{Size: obj.Size, ModTime: obj.ModTime})
	if marshalErr != nil {
		return marshalErr
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(container))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(obj.Name), value)
	})
}
