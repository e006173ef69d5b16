package model

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"
	bolt "go.etcd.io/bbolt"
)

// bucket names, one per tag, mirroring the teacher's
// internal/gps/source_cache_bolt.go bucket-per-concern layout (there:
// "rev:<revision>"/"versions:<ts>"; here: one top-level bucket per Tag).
var (
	bucketFileModel = []byte(string(TagFileModel))
	bucketRaw       = []byte(string(TagRaw))
	bucketImport    = []byte(string(TagImport))
)

// PersistentCache is a bbolt-backed ModelCache for the "longer-lived
// cache the caller supplies" case spec.md §4.2/§5 leaves as the
// caller's responsibility. It is the maintained-fork analog of the
// teacher's boltCache: a single on-disk file, one bucket per tag, JSON
// encoded values (the teacher hand-rolls a binary encoding; we use
// encoding/json since our Descriptor has no fixed-width fields to
// exploit the way gps's version/revision keys do).
type PersistentCache struct {
	db   *bolt.DB
	lock *flock.Flock
}

// OpenPersistentCache opens (creating if necessary) a bbolt database at
// path, taking an exclusive file lock first so two processes never open
// the same cache file concurrently — the same discipline the teacher
// applies to its vendor directory lock in ensure.go, generalized here
// with theckman/go-flock instead of a hand-rolled lock file.
func OpenPersistentCache(path string) (*PersistentCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create cache directory for %s", path)
	}

	fl := flock.NewFlock(path + ".lock")
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to acquire lock for cache %s", path)
	}
	if !locked {
		return nil, errors.Errorf("cache %s is locked by another process", path)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		fl.Unlock()
		return nil, errors.Wrapf(err, "failed to open cache file %q", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketFileModel, bucketRaw, bucketImport} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		fl.Unlock()
		return nil, errors.Wrap(err, "failed to initialize cache buckets")
	}

	return &PersistentCache{db: db, lock: fl}, nil
}

// Close releases the database and the file lock.
func (c *PersistentCache) Close() error {
	dbErr := c.db.Close()
	lockErr := c.lock.Unlock()
	if dbErr != nil {
		return dbErr
	}
	return lockErr
}

func bucketFor(tag Tag) []byte {
	switch tag {
	case TagFileModel:
		return bucketFileModel
	case TagRaw:
		return bucketRaw
	case TagImport:
		return bucketImport
	default:
		return nil
	}
}

func (c *PersistentCache) GetByCoordinates(coord Coordinates, tag Tag) (*Descriptor, bool) {
	return c.get(bucketFor(tag), []byte(coordKey(coord, tag)))
}

func (c *PersistentCache) PutByCoordinates(coord Coordinates, tag Tag, m *Descriptor) error {
	return c.put(bucketFor(tag), []byte(coordKey(coord, tag)), m)
}

func (c *PersistentCache) GetBySource(source string, tag Tag) (*Descriptor, bool) {
	return c.get(bucketFor(tag), []byte(sourceKey(source, tag)))
}

func (c *PersistentCache) PutBySource(source string, tag Tag, m *Descriptor) error {
	return c.put(bucketFor(tag), []byte(sourceKey(source, tag)), m)
}

func (c *PersistentCache) GetImport(coord Coordinates) (DependencyManagement, bool) {
	var dm DependencyManagement
	var found bool
	_ = c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImport)
		v := b.Get([]byte(importKey(coord)))
		if v == nil {
			return nil
		}
		if err := json.NewDecoder(bytes.NewReader(v)).Decode(&dm); err != nil {
			return err
		}
		found = true
		return nil
	})
	return dm, found
}

func (c *PersistentCache) PutImport(coord Coordinates, dm DependencyManagement) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketImport)
		buf, err := json.Marshal(dm)
		if err != nil {
			return errors.Wrap(err, "failed to encode dependency management block")
		}
		return b.Put([]byte(importKey(coord)), buf)
	})
}

func (c *PersistentCache) get(bucket, key []byte) (*Descriptor, bool) {
	if bucket == nil {
		return nil, false
	}
	var d Descriptor
	var found bool
	_ = c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucket).Get(key)
		if v == nil {
			return nil
		}
		if err := json.NewDecoder(bytes.NewReader(v)).Decode(&d); err != nil {
			return err
		}
		found = true
		return nil
	})
	if !found {
		return nil, false
	}
	return d.Clone(), true
}

func (c *PersistentCache) put(bucket, key []byte, m *Descriptor) error {
	if bucket == nil {
		return errors.Errorf("cache: no bucket for key %q", key)
	}
	buf, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "failed to encode descriptor")
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put(key, buf)
	})
}

var _ Cache = (*PersistentCache)(nil)
