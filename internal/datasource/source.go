// Package datasource identifies tree sources on disk and reads the ones
// stored in SQLite. Parsing of text formats lives in pkg/loader.
package datasource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceType identifies the storage format of a tree source.
type SourceType string

const (
	// SourceTypeYAML is a nested YAML document.
	SourceTypeYAML SourceType = "yaml"
	// SourceTypeJSON is a nested JSON document.
	SourceTypeJSON SourceType = "json"
	// SourceTypeJSONL is one flat node record per line.
	SourceTypeJSONL SourceType = "jsonl"
	// SourceTypeSQLite is a database with a nodes table.
	SourceTypeSQLite SourceType = "sqlite"
)

// ErrUnsupportedFormat is returned when a path matches no known source type.
var ErrUnsupportedFormat = errors.New("unsupported tree source format")

var sqliteMagic = []byte("SQLite format 3\x00")

// DataSource describes a tree source on disk.
type DataSource struct {
	// Type identifies the source format
	Type SourceType `json:"type"`
	// Path is the absolute path to the source file
	Path string `json:"path"`
	// ModTime is the last modification time of the source
	ModTime time.Time `json:"mod_time"`
	// Size is the file size in bytes
	Size int64 `json:"size"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	return fmt.Sprintf("%s (%s, %d bytes, mod=%s)", s.Path, s.Type, s.Size, s.ModTime.Format(time.RFC3339))
}

// Flat reports whether the source stores parent references instead of
// nesting.
func (s DataSource) Flat() bool {
	return s.Type == SourceTypeJSONL || s.Type == SourceTypeSQLite
}

// Detect stats path and picks its source type from the extension. Files
// without a known extension are sniffed for the SQLite header.
func Detect(path string) (DataSource, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := os.Stat(abs)
	if err != nil {
		return DataSource{}, fmt.Errorf("stat tree source: %w", err)
	}
	if info.IsDir() {
		return DataSource{}, fmt.Errorf("%s is a directory: %w", path, ErrUnsupportedFormat)
	}
	src := DataSource{Path: abs, ModTime: info.ModTime(), Size: info.Size()}

	switch strings.ToLower(filepath.Ext(abs)) {
	case ".yaml", ".yml":
		src.Type = SourceTypeYAML
	case ".json":
		src.Type = SourceTypeJSON
	case ".jsonl", ".ndjson":
		src.Type = SourceTypeJSONL
	case ".db", ".sqlite", ".sqlite3":
		src.Type = SourceTypeSQLite
	default:
		ok, err := hasSQLiteHeader(abs)
		if err != nil {
			return DataSource{}, err
		}
		if !ok {
			return DataSource{}, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
		}
		src.Type = SourceTypeSQLite
	}
	return src, nil
}

func hasSQLiteHeader(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open tree source: %w", err)
	}
	defer f.Close()
	head := make([]byte, len(sqliteMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false, nil
	}
	return bytes.Equal(head, sqliteMagic), nil
}
