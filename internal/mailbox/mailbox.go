// Package mailbox supplies decoded email messages to the mailorder pipeline.
//
// Each supported export format (plain text with header prefix, JSON, YAML)
// has its own importer that implements the Importer interface. The loader
// auto-detects formats by file extension and dispatches to the correct
// parser. Transport decoding (base64, MIME multipart) is out of scope: files
// are expected to hold already-decoded text. HTML bodies are normalized to
// plain text before they leave this package.
package mailbox

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is one decoded email handed to the extraction engine.
type Message struct {
	ID      string    `json:"id" yaml:"id"`
	From    string    `json:"from" yaml:"from"`
	Subject string    `json:"subject" yaml:"subject"`
	Date    time.Time `json:"date" yaml:"date"`
	Body    string    `json:"body" yaml:"body"`

	// SourceFile records where the message was loaded from.
	SourceFile string `json:"source_file,omitempty" yaml:"source_file,omitempty"`
}

// Importer parses one mailbox export file into messages.
type Importer interface {
	CanHandle(path string) bool
	Import(path string) ([]*Message, error)
}

// importers in dispatch order; the text importer doubles as fallback.
func importers() []Importer {
	return []Importer{
		&JSONImporter{},
		&YAMLImporter{},
		&TextImporter{},
	}
}

// LoadOptions controls directory loading.
type LoadOptions struct {
	Recursive bool
	MaxFiles  int // 0 = no cap
}

// LoadFile parses a single export file into messages.
func LoadFile(path string) ([]*Message, error) {
	for _, imp := range importers() {
		if !imp.CanHandle(path) {
			continue
		}
		msgs, err := imp.Import(path)
		if err != nil {
			return nil, fmt.Errorf("importing %s: %w", path, err)
		}
		finalize(msgs, path)
		return msgs, nil
	}
	return nil, fmt.Errorf("unsupported file format: %s", path)
}

// LoadDir walks a directory of export files and returns all messages, in
// stable path order. Files that fail to parse are skipped with their error
// collected, so one bad file never aborts a batch.
func LoadDir(path string, opts LoadOptions) ([]*Message, []error) {
	var files []string
	walk := func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != path && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		}
		files = append(files, p)
		return nil
	}
	if err := filepath.WalkDir(path, walk); err != nil {
		return nil, []error{fmt.Errorf("walking %s: %w", path, err)}
	}
	sort.Strings(files)

	var (
		messages  []*Message
		errs      []error
		processed int
	)
	for _, f := range files {
		if opts.MaxFiles > 0 && processed >= opts.MaxFiles {
			break
		}
		processed++
		msgs, err := LoadFile(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		messages = append(messages, msgs...)
	}
	return messages, errs
}

// finalize assigns fallback IDs and normalizes HTML bodies.
func finalize(msgs []*Message, sourceFile string) {
	for _, m := range msgs {
		if m.SourceFile == "" {
			m.SourceFile = sourceFile
		}
		if strings.TrimSpace(m.ID) == "" {
			m.ID = uuid.NewString()
		}
		if looksLikeHTML(m.Body) {
			m.Body = NormalizeHTML(m.Body)
		}
	}
}

// dateLayouts are tried in order when parsing message dates.
var dateLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
