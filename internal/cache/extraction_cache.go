package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/archlens/archlens/internal/errors"
	"github.com/archlens/archlens/internal/models"
	bolt "go.etcd.io/bbolt"
	"lukechampine.com/blake3"
)

const bucketName = "extractions"

// FileName is the cache database name inside the cache directory
const FileName = "extractions.db"

// ExtractionCache stores extracted metadata keyed by a blake3 hash of the
// source content. The namespace (typically provider/model) is mixed into
// the key so switching models does not serve stale records.
type ExtractionCache struct {
	db        *bolt.DB
	namespace string
}

// Open opens or creates the cache database in dir
func Open(dir, namespace string) (*ExtractionCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.FileSystemErrorf(err, "failed to create cache directory %s", dir)
	}

	path := filepath.Join(dir, FileName)
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "failed to open cache %s", path)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	}); err != nil {
		db.Close()
		return nil, errors.FileSystemErrorf(err, "failed to initialize cache %s", path)
	}

	return &ExtractionCache{db: db, namespace: namespace}, nil
}

// Key returns the hex cache key for content
func (c *ExtractionCache) Key(content []byte) string {
	hasher := blake3.New(32, nil)
	hasher.Write([]byte(c.namespace))
	hasher.Write([]byte{0})
	hasher.Write(content)
	return hex.EncodeToString(hasher.Sum(nil))
}

// Get returns the cached record for content, if any
func (c *ExtractionCache) Get(content []byte) (*models.CodeMetadata, bool, error) {
	var data []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return bolt.ErrBucketNotFound
		}
		if v := bucket.Get([]byte(c.Key(content))); v != nil {
			data = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup failed: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}

	var md models.CodeMetadata
	if err := json.Unmarshal(data, &md); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry: %w", err)
	}
	return &md, true, nil
}

// Put stores md under the hash of content
func (c *ExtractionCache) Put(content []byte, md *models.CodeMetadata) error {
	data, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	return c.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		if err != nil {
			return err
		}
		return bucket.Put([]byte(c.Key(content)), data)
	})
}

// Len returns the number of cached records
func (c *ExtractionCache) Len() (int, error) {
	n := 0
	err := c.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketName))
		if bucket == nil {
			return nil
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

// Clear removes every cached record
func (c *ExtractionCache) Clear() error {
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
}

// Close closes the database
func (c *ExtractionCache) Close() error {
	return c.db.Close()
}
