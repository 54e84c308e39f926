// Package loader reads tree documents from YAML, JSON, JSONL and SQLite
// sources into a nested model.Document.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/arbor/internal/datasource"
	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/model"
)

// ErrUnsupportedFormat is returned for paths no reader understands.
var ErrUnsupportedFormat = datasource.ErrUnsupportedFormat

// RobotEnvVar suppresses the default stderr warning handler when set to "1".
const RobotEnvVar = "ARBOR_ROBOT"

// DefaultMaxBufferSize is the default buffer size for the scanner (10MB).
const DefaultMaxBufferSize = 1024 * 1024 * 10

// Options configures how sources are parsed.
type Options struct {
	// WarningHandler is called with warning messages (e.g., malformed JSON).
	// If nil, warnings are printed to os.Stderr.
	WarningHandler func(string)

	// BufferSize sets the maximum JSONL line size (in bytes) to read at once.
	// Lines longer than this are skipped with a warning.
	// If 0, uses DefaultMaxBufferSize (10MB).
	BufferSize int
}

func (o Options) warn() func(string) {
	if o.WarningHandler != nil {
		return o.WarningHandler
	}
	if os.Getenv(RobotEnvVar) == "1" {
		return func(string) {}
	}
	return func(msg string) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", msg)
	}
}

// Load reads the tree document at path.
func Load(path string) (*model.Document, error) {
	return LoadWithOptions(path, Options{})
}

// LoadWithOptions reads the tree document at path, choosing a reader from
// the detected source type.
func LoadWithOptions(path string, opts Options) (*model.Document, error) {
	src, err := datasource.Detect(path)
	if err != nil {
		return nil, err
	}
	defer metrics.Timer(metrics.SourceLoad)()
	start := time.Now()
	defer func() { debug.LogTiming("load "+src.Path, time.Since(start)) }()

	var doc *model.Document
	switch src.Type {
	case datasource.SourceTypeYAML, datasource.SourceTypeJSON:
		data, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read tree file: %w", err)
		}
		doc, err = ParseDocument(data, src.Type)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case datasource.SourceTypeJSONL:
		file, err := os.Open(src.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open tree file: %w", err)
		}
		defer file.Close()
		flat, err := ParseFlat(file, opts)
		if err != nil {
			return nil, err
		}
		nodes, err := BuildForest(flat, opts.warn())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		doc = &model.Document{Nodes: nodes}
	case datasource.SourceTypeSQLite:
		r, err := datasource.NewSQLiteReader(src)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		flat, err := r.LoadNodes()
		if err != nil {
			return nil, err
		}
		nodes, err := BuildForest(flat, opts.warn())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		doc = &model.Document{Nodes: nodes}
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}

	if doc.Title == "" {
		doc.Title = strings.TrimSuffix(filepath.Base(src.Path), filepath.Ext(src.Path))
	}
	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	debug.Log("loader: %s (%s) has %d nodes", src.Path, src.Type, doc.Count())
	return doc, nil
}

// ParseDocument decodes a nested YAML or JSON document. A bare list of
// nodes is accepted as shorthand for a document with only nodes.
func ParseDocument(data []byte, format datasource.SourceType) (*model.Document, error) {
	data = stripBOM(data)
	var doc model.Document
	switch format {
	case datasource.SourceTypeJSON:
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
			if err := json.Unmarshal(trimmed, &doc.Nodes); err != nil {
				return nil, fmt.Errorf("invalid JSON node list: %w", err)
			}
			return &doc, nil
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("invalid JSON document: %w", err)
		}
	case datasource.SourceTypeYAML:
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("invalid YAML document: %w", err)
		}
		if len(root.Content) == 0 {
			return &doc, nil
		}
		body := root.Content[0]
		var err error
		if body.Kind == yaml.SequenceNode {
			err = body.Decode(&doc.Nodes)
		} else {
			err = body.Decode(&doc)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid YAML document: %w", err)
		}
	default:
		return nil, fmt.Errorf("%s: %w", format, ErrUnsupportedFormat)
	}
	return &doc, nil
}

// ParseFlat reads one node record per line. Blank lines are skipped;
// malformed or invalid records are skipped with a warning.
func ParseFlat(r io.Reader, opts Options) ([]model.NodeSpec, error) {
	maxCapacity := opts.BufferSize
	if maxCapacity <= 0 {
		maxCapacity = DefaultMaxBufferSize
	}
	reader := bufio.NewReaderSize(r, maxCapacity)
	warn := opts.warn()

	var specs []model.NodeSpec
	lineNum := 0
	for {
		lineNum++
		// ReadLine returns a single line, not including the end-of-line bytes.
		line, isPrefix, err := reader.ReadLine()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("error reading tree stream at line %d: %w", lineNum, err)
		}

		if isPrefix {
			warn(fmt.Sprintf("skipping line %d: line too long (exceeds %d bytes)", lineNum, maxCapacity))
			for isPrefix {
				_, isPrefix, err = reader.ReadLine()
				if err == io.EOF {
					break
				}
				if err != nil {
					return nil, fmt.Errorf("error skipping long line at line %d: %w", lineNum, err)
				}
			}
			continue
		}

		if lineNum == 1 {
			line = stripBOM(line)
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		var spec model.NodeSpec
		if err := json.Unmarshal(line, &spec); err != nil {
			warn(fmt.Sprintf("skipping malformed JSON on line %d: %v", lineNum, err))
			continue
		}
		if err := spec.Validate(); err != nil {
			warn(fmt.Sprintf("skipping invalid node on line %d: %v", lineNum, err))
			continue
		}
		if len(spec.Children) > 0 {
			warn(fmt.Sprintf("line %d: nested children ignored in flat record %s", lineNum, spec.ID))
			spec.Children = nil
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// LoadAll loads several tree sources concurrently and concatenates their
// forests in argument order. The first document's title and settings win.
func LoadAll(ctx context.Context, paths []string, opts Options) (*model.Document, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no tree sources given")
	}
	docs := make([]*model.Document, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	for i, p := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			doc, err := LoadWithOptions(p, opts)
			if err != nil {
				return err
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := *docs[0]
	merged.Nodes = append([]model.NodeSpec(nil), docs[0].Nodes...)
	for _, d := range docs[1:] {
		merged.Nodes = append(merged.Nodes, d.Nodes...)
	}
	if len(docs) > 1 {
		if err := merged.Validate(); err != nil {
			return nil, fmt.Errorf("merging %d sources: %w", len(docs), err)
		}
	}
	return &merged, nil
}

// stripBOM removes the UTF-8 Byte Order Mark if present
func stripBOM(b []byte) []byte {
	if bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}) {
		return b[3:]
	}
	return b
}
