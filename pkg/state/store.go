package state

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

var (
	// ErrNotFound is returned by Load when no snapshot exists for a key.
	ErrNotFound = errors.New("no saved state")
	// ErrCorrupt is returned by Load when the saved snapshot cannot be decoded.
	ErrCorrupt = errors.New("corrupt saved state")
)

// Store persists snapshots under a per-tree key.
type Store interface {
	Load(key string) (*Snapshot, error)
	Save(key string, snap *Snapshot) error
	Delete(key string) error
	Close() error
}

// Open returns the store for backend rooted at dir.
func Open(backend, dir string) (Store, error) {
	switch strings.ToLower(backend) {
	case "", BackendJSON:
		return NewFileStore(dir), nil
	case BackendSQLite:
		return OpenSQLiteStore(filepath.Join(dir, "state.db"))
	default:
		return nil, fmt.Errorf("unknown state backend %q", backend)
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key derives a stable store key for a tree source path: the file's base
// name plus a short hash of its absolute path.
func Key(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	base := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	base = unsafeKeyChars.ReplaceAllString(base, "_")
	sum := sha256.Sum256([]byte(abs))
	return base + "-" + hex.EncodeToString(sum[:4])
}

func checkKey(key string) error {
	if key == "" || key != unsafeKeyChars.ReplaceAllString(key, "_") {
		return fmt.Errorf("invalid state key %q", key)
	}
	return nil
}
