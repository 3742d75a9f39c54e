// Package cache persists parsed tool runs between checker invocations.
// Keys cover everything that could change a run's outcome: payload schema,
// adapter identity, tool fingerprint, arguments and fixture content. A tool
// upgrade or a fixture edit misses the cache instead of serving stale
// verdicts.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Bump when the Payload layout changes; old entries then read as misses.
const schemaVersion uint16 = 1

// Key is the sha256 identity of one tool-over-fixture run.
type Key [sha256.Size]byte

func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// KeyFor derives the cache key for a tool run.
func KeyFor(adapter, fingerprint string, args []string, contentHash [sha256.Size]byte) Key {
	h := sha256.New()
	fmt.Fprintf(h, "schema:%d\n", schemaVersion)
	fmt.Fprintf(h, "adapter:%s\n", adapter)
	fmt.Fprintf(h, "tool:%s\n", fingerprint)
	for _, a := range args {
		fmt.Fprintf(h, "arg:%s\n", a)
	}
	h.Write(contentHash[:])

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// DiskCache хранит разобранные результаты прогонов под ключом запуска.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Open initializes the cache directory and returns a handle to it.
func Open(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string {
	if c == nil {
		return ""
	}
	return c.dir
}

func (c *DiskCache) pathFor(key Key) string {
	// Для удобства читаемости/очистки — подкаталог "runs".
	return filepath.Join(c.dir, "runs", key.String()+".mp")
}

// Put serializes and atomically writes a payload. A nil cache ignores the
// call, so a disabled cache needs no branching at call sites.
func (c *DiskCache) Put(key Key, payload *Payload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	tmpName := f.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	// Атомарная замена
	if err := os.Rename(tmpName, p); err != nil {
		return err
	}
	tmpName = ""
	return nil
}

// Get reads a payload. A miss is (false, nil); a corrupt entry is an error
// the caller may treat as a miss.
func (c *DiskCache) Get(key Key, out *Payload) (bool, error) {
	if c == nil {
		return false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = f.Close() }()

	if err := msgpack.NewDecoder(f).Decode(out); err != nil {
		return false, err
	}
	return true, nil
}

// Clear drops every cached run, useful after format changes.
func (c *DiskCache) Clear() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	// тривиально: переименуем каталог и удалим
	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
