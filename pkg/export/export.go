// Package export writes a loaded conversation to static formats: a
// standalone HTML page, a markdown transcript, a SQLite database and a
// branch diagram rendered as SVG or PNG.
//
// Every exporter reads the same immutable Snapshot, so several formats can
// be written concurrently with RunAll.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/filter"
	"github.com/vanderheijden86/threadview/pkg/loader"
	"github.com/vanderheijden86/threadview/pkg/markdown"
	"github.com/vanderheijden86/threadview/pkg/metrics"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/tree"
)

// Format names an export format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatMarkdown Format = "md"
	FormatSQLite   Format = "sqlite"
	FormatSVG      Format = "svg"
	FormatPNG      Format = "png"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatHTML, FormatMarkdown, FormatSQLite, FormatSVG, FormatPNG}
}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "html", "htm":
		return FormatHTML, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "sqlite", "sqlite3", "db":
		return FormatSQLite, nil
	case "svg":
		return FormatSVG, nil
	case "png":
		return FormatPNG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Ext returns the file extension written for f, dot included.
func (f Format) Ext() string {
	if f == FormatSQLite {
		return ".sqlite3"
	}
	return "." + string(f)
}

// Snapshot is the state every exporter reads. It must not be modified once
// handed to Write or RunAll.
type Snapshot struct {
	Doc    *loader.Document
	Meta   render.DocumentMeta
	View   render.View
	Status render.Status
	Leaves []render.LeafOption
	// TimeFormat formats timestamps shown to readers.
	TimeFormat  render.TimeFormatter
	GeneratedAt time.Time
	// Markdown renders message text for HTML output. Nil uses markdown.NewRenderer.
	Markdown markdown.Renderer
}

// NewSnapshot renders the path to leafID under cfg. An empty leafID picks
// the leaf the document declares, falling back to the most recent one.
func NewSnapshot(doc *loader.Document, leafID string, cfg filter.Config, format render.TimeFormatter) *Snapshot {
	if format == nil {
		format = render.ISOTime
	}
	if leafID == "" {
		leafID, _ = tree.SelectLeaf(doc.Tree, doc.Conversation.CurrentNode)
	}
	v := render.Render(doc.Tree, leafID, cfg)
	return &Snapshot{
		Doc:         doc,
		Meta:        render.Meta(doc.Conversation, doc.Source, format),
		View:        v,
		Status:      v.Status(),
		Leaves:      render.LeafOptions(doc.Tree, format),
		TimeFormat:  format,
		GeneratedAt: time.Now(),
	}
}

func (s *Snapshot) markdown() markdown.Renderer {
	if s.Markdown != nil {
		return s.Markdown
	}
	return markdown.NewRenderer()
}

func (s *Snapshot) formatTime(r render.Record) string {
	if !r.HasTime() {
		return ""
	}
	return s.TimeFormat(r.At)
}

// Job is one file to write.
type Job struct {
	Format Format
	Path   string
}

// DefaultPath derives an output path in dir from the document source name.
func DefaultPath(dir, source string, f Format) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "conversation"
	}
	return filepath.Join(dir, base+f.Ext())
}

// Write runs a single job.
func Write(ctx context.Context, snap *Snapshot, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if job.Path == "" {
		return fmt.Errorf("%s export: output path is required", job.Format)
	}
	defer metrics.TimerWithCallback(metrics.Export, func(d time.Duration) {
		debug.LogTiming("export "+string(job.Format), d)
	})()

	if dir := filepath.Dir(job.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
	}

	switch job.Format {
	case FormatHTML:
		return SaveHTML(snap, job.Path)
	case FormatMarkdown:
		return SaveMarkdown(snap, job.Path)
	case FormatSQLite:
		return NewSQLiteExporter(snap).Export(job.Path)
	case FormatSVG, FormatPNG:
		return SaveBranchDiagram(snap, DiagramOptions{Path: job.Path, Format: string(job.Format)})
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, job.Format)
}

// RunAll writes every job concurrently. The first failure cancels the
// jobs that have not started; all errors are reported together.
func RunAll(ctx context.Context, snap *Snapshot, jobs []Job) error {
	g, ctx := errgroup.WithContext(ctx)
	errs := make([]error, len(jobs))
	for i, job := range jobs {
		g.Go(func() error {
			if err := Write(ctx, snap, job); err != nil {
				errs[i] = fmt.Errorf("%s -> %s: %w", job.Format, job.Path, err)
				return errs[i]
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return err
	}
	return os.Rename(name, path)
}
