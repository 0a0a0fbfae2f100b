// Package loader turns raw bytes into a loaded conversation document.
//
// It enforces the only hard requirements on the input: well-formed JSON, a
// top-level object, and a mapping object. Everything inside is decoded
// leniently by pkg/model.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/metrics"
	"github.com/vanderheijden86/threadview/pkg/model"
	"github.com/vanderheijden86/threadview/pkg/tree"
)

var (
	// ErrParse reports input that is not well-formed JSON.
	ErrParse = errors.New("parse failure")
	// ErrInvalidFormat reports JSON that is not an object with a mapping.
	ErrInvalidFormat = tree.ErrInvalidFormat
	// ErrTooLarge reports input above ParseOptions.MaxBytes.
	ErrTooLarge = errors.New("document too large")
)

// DefaultMaxBytes caps the size of a single document.
const DefaultMaxBytes = 256 << 20

// ParseOptions configures parsing.
type ParseOptions struct {
	// MaxBytes limits the input size; <= 0 uses DefaultMaxBytes.
	MaxBytes int64
	// WarningHandler receives non-fatal findings such as structural
	// problems of the mapping. When nil, warnings go to the debug log.
	WarningHandler func(msg string)
}

func (o ParseOptions) maxBytes() int64 {
	if o.MaxBytes <= 0 {
		return DefaultMaxBytes
	}
	return o.MaxBytes
}

func (o ParseOptions) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if o.WarningHandler != nil {
		o.WarningHandler(msg)
		return
	}
	debug.Log("loader: %s", msg)
}

// Document is one successfully loaded conversation.
type Document struct {
	// Source is the display name: a file base name, "stdin", or the sample path.
	Source       string
	Conversation *model.Conversation
	Tree         *tree.Tree
	// Problems lists structural defects found while loading.
	Problems []tree.Problem
	// Raw is a private copy of the document bytes, BOM stripped.
	Raw []byte
}

// Parse decodes data as a conversation document.
func Parse(data []byte, source string, opts ParseOptions) (*Document, error) {
	data = stripBOM(data)
	if int64(len(data)) > opts.maxBytes() {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, len(data), opts.maxBytes())
	}

	stop := metrics.Timer(metrics.JSONParsing)
	var probe any
	err := json.Unmarshal(data, &probe)
	if err != nil {
		stop()
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if _, ok := probe.(map[string]any); !ok {
		stop()
		return nil, fmt.Errorf("%w: top-level value is not a JSON object", ErrInvalidFormat)
	}
	var conv model.Conversation
	err = conv.UnmarshalJSON(data)
	stop()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if conv.Mapping == nil {
		return nil, fmt.Errorf("%w: missing mapping field (ChatGPT export format)", ErrInvalidFormat)
	}

	t, err := tree.New(&conv)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		Source:       source,
		Conversation: &conv,
		Tree:         t,
		Problems:     t.Validate(),
		Raw:          bytes.Clone(data),
	}
	if n := len(doc.Problems); n > 0 {
		opts.warn("%s: %d structural problem(s), first: %s", source, n, doc.Problems[0].Message)
	}
	debug.Log("loader: %s: %d nodes, %d leaves", source, t.Len(), len(t.Leaves()))
	return doc, nil
}

// ParseReader reads r fully and parses it.
func ParseReader(r io.Reader, source string, opts ParseOptions) (*Document, error) {
	buf := getBuffer()
	defer putBuffer(buf)

	limit := opts.maxBytes()
	if _, err := buf.ReadFrom(io.LimitReader(r, limit+1)); err != nil {
		return nil, fmt.Errorf("read %s: %w", source, err)
	}
	if int64(buf.Len()) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrTooLarge, source, limit)
	}
	return Parse(buf.Bytes(), source, opts)
}

// LoadFile reads and parses a conversation file. The document source is
// the file's base name.
func LoadFile(path string, opts ParseOptions) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open conversation file: %w", err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory", path)
		}
		if info.Size() > opts.maxBytes() {
			return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, info.Size())
		}
	}
	return ParseReader(f, filepath.Base(path), opts)
}

// stripBOM removes a UTF-8 byte order mark.
func stripBOM(b []byte) []byte {
	return bytes.TrimPrefix(b, []byte{0xEF, 0xBB, 0xBF})
}
