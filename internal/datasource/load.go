package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/loader"
)

// LoadOptions carries the collaborators a load may need.
type LoadOptions struct {
	Parse  loader.ParseOptions
	Client *http.Client
	// Stdin defaults to os.Stdin.
	Stdin io.Reader
}

// ValidateSource loads a file source and records whether it parsed.
func ValidateSource(s *DataSource) error {
	doc, err := Load(context.Background(), *s, LoadOptions{
		Parse: loader.ParseOptions{WarningHandler: func(string) {}},
	})
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.NodeCount = doc.Tree.Len()
	return nil
}

// Load reads the document behind src.
func Load(ctx context.Context, src DataSource, opts LoadOptions) (*loader.Document, error) {
	defer debug.LogEnterExit("datasource.Load " + string(src.Type))()

	switch src.Type {
	case SourceTypeJSON:
		return loader.LoadFile(src.Path, opts.Parse)
	case SourceTypeSQLite:
		r, err := NewSQLiteReader(src)
		if err != nil {
			return nil, fmt.Errorf("open SQLite source %s: %w", src.Path, err)
		}
		defer r.Close()
		return r.LoadDocument(opts.Parse)
	case SourceTypeStdin:
		in := opts.Stdin
		if in == nil {
			in = os.Stdin
		}
		return loader.ParseReader(in, "stdin", opts.Parse)
	case SourceTypeURL:
		return loader.LoadURL(ctx, opts.Client, src.Path, opts.Parse)
	case SourceTypeSample:
		return loader.LoadSample(ctx, opts.Client, src.Path, opts.Parse)
	default:
		return nil, fmt.Errorf("unknown source type: %s", src.Type)
	}
}
