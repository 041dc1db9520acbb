package cache

import (
	"bytes"
	"crypto/md5"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

type CacheEntry[T any] struct {
	Data      T
	CreatedAt time.Time
	Checksum  string
}

type CacheService[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T) error
	Delete(key string) error
	GenerateKey(params ...interface{}) string
}

// FileCache stores one gob file per key under cacheDir. Entries are gob
// encoded rather than JSON so float payloads may hold NaN.
type FileCache[T any] struct {
	cacheDir string
}

func NewFileCache[T any](cacheDir string) *FileCache[T] {
	return &FileCache[T]{
		cacheDir: cacheDir,
	}
}

// GenerateKey hashes params length-prefixed, so separators inside a
// parameter cannot make two parameter lists collide.
func (fc *FileCache[T]) GenerateKey(params ...interface{}) string {
	h := sha1.New()
	for _, param := range params {
		value := fmt.Sprintf("%v", param)
		fmt.Fprintf(h, "%d:%s", len(value), value)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (fc *FileCache[T]) path(key string) string {
	return filepath.Join(fc.cacheDir, key+".gob")
}

func (fc *FileCache[T]) Get(key string) (T, bool) {
	var zero T

	data, err := os.ReadFile(fc.path(key))
	if err != nil {
		return zero, false
	}

	var entry CacheEntry[T]
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&entry); err != nil {
		fc.Delete(key)
		return zero, false
	}

	expectedChecksum, err := fc.calculateChecksum(entry.Data)
	if err != nil || entry.Checksum != expectedChecksum {
		fc.Delete(key)
		return zero, false
	}

	return entry.Data, true
}

func (fc *FileCache[T]) Set(key string, data T) error {
	if err := os.MkdirAll(fc.cacheDir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	checksum, err := fc.calculateChecksum(data)
	if err != nil {
		return fmt.Errorf("failed to checksum cache entry: %w", err)
	}
	entry := CacheEntry[T]{
		Data:      data,
		CreatedAt: time.Now(),
		Checksum:  checksum,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	cacheFile := fc.path(key)
	tmpFile, err := os.CreateTemp(fc.cacheDir, key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	if _, err := tmpFile.Write(buf.Bytes()); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return fmt.Errorf("failed to write temp cache file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), cacheFile); err != nil {
		os.Remove(tmpFile.Name())
		return fmt.Errorf("failed to rename temp cache file: %w", err)
	}

	return nil
}

// Delete removes the entry for key. Missing entries are not an error.
func (fc *FileCache[T]) Delete(key string) error {
	if err := os.Remove(fc.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (fc *FileCache[T]) calculateChecksum(data T) (string, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(data); err != nil {
		return "", err
	}
	hash := md5.Sum(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}
