// Package datasource resolves a command-line argument to a conversation
// source and loads it. A directory argument is scanned for candidate
// files; every candidate is validated and the freshest valid one wins.
package datasource

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SourceType identifies the kind of data source.
type SourceType string

const (
	// SourceTypeJSON is a conversation export file.
	SourceTypeJSON SourceType = "json"
	// SourceTypeSQLite is a database written by tv --export-sqlite.
	SourceTypeSQLite SourceType = "sqlite"
	// SourceTypeStdin reads the document from standard input.
	SourceTypeStdin SourceType = "stdin"
	// SourceTypeURL fetches the document over http(s).
	SourceTypeURL SourceType = "url"
	// SourceTypeSample fetches the bundled sample relative to a base URL.
	SourceTypeSample SourceType = "sample"
)

// Priority values break ModTime ties (higher = preferred).
const (
	PriorityJSON   = 100
	PrioritySQLite = 50
)

// ErrNoSource is returned when nothing loadable was found.
var ErrNoSource = errors.New("no conversation source found")

// DataSource is one place a conversation can be loaded from.
type DataSource struct {
	Type SourceType `json:"type"`
	// Path is a file path, a URL, or the sample base URL.
	Path     string    `json:"path"`
	Priority int       `json:"priority"`
	ModTime  time.Time `json:"mod_time"`
	Size     int64     `json:"size"`
	// Valid is set by ValidateSource.
	Valid           bool   `json:"valid"`
	ValidationError string `json:"validation_error,omitempty"`
	NodeCount       int    `json:"node_count"`
}

// String returns a human-readable description of the source.
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s (%s, mod=%s, nodes=%d, %s)",
		s.Path, s.Type, s.ModTime.Format(time.RFC3339), s.NodeCount, status)
}

// DiscoveryOptions configures directory scanning.
type DiscoveryOptions struct {
	Dir                    string
	ValidateAfterDiscovery bool
	IncludeInvalid         bool
	Verbose                bool
	Logger                 func(msg string)
}

// DiscoverSources lists conversation candidates in opts.Dir, freshest first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	if opts.Logger == nil {
		opts.Logger = func(string) {}
	}
	entries, err := os.ReadDir(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}
	if opts.Verbose {
		opts.Logger(fmt.Sprintf("Discovering sources in: %s", opts.Dir))
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		typ, ok := typeForName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		src := DataSource{
			Type:     typ,
			Path:     filepath.Join(opts.Dir, e.Name()),
			Priority: priority(typ),
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		}
		sources = append(sources, src)
		if opts.Verbose {
			opts.Logger(fmt.Sprintf("Found %s: %s (mod=%s)", typ, src.Path, src.ModTime.Format(time.RFC3339)))
		}
	}

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil && opts.Verbose {
				opts.Logger(fmt.Sprintf("Validation failed for %s: %v", sources[i].Path, err))
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)
	return sources, nil
}

// SelectBestSource returns the freshest valid source.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	candidates := make([]DataSource, 0, len(sources))
	for _, s := range sources {
		if s.Valid {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return DataSource{}, ErrNoSource
	}
	sortSources(candidates)
	return candidates[0], nil
}

// Resolve maps a command-line argument to a source. "-" is stdin, http(s)
// URLs are fetched, a directory is scanned, anything else is a file.
func Resolve(arg string, opts DiscoveryOptions) (DataSource, error) {
	switch {
	case arg == "-":
		return DataSource{Type: SourceTypeStdin, Path: "stdin", Valid: true}, nil
	case strings.HasPrefix(arg, "http://"), strings.HasPrefix(arg, "https://"):
		return DataSource{Type: SourceTypeURL, Path: arg, Valid: true}, nil
	case arg == "":
		return DataSource{}, ErrNoSource
	}

	info, err := os.Stat(arg)
	if err != nil {
		return DataSource{}, err
	}
	if info.IsDir() {
		opts.Dir = arg
		opts.ValidateAfterDiscovery = true
		sources, err := DiscoverSources(opts)
		if err != nil {
			return DataSource{}, err
		}
		best, err := SelectBestSource(sources)
		if err != nil {
			return DataSource{}, fmt.Errorf("%w in %s", err, arg)
		}
		return best, nil
	}

	typ, ok := typeForName(arg)
	if !ok {
		typ = SourceTypeJSON
	}
	return DataSource{
		Type:     typ,
		Path:     arg,
		Priority: priority(typ),
		ModTime:  info.ModTime(),
		Size:     info.Size(),
		Valid:    true,
	}, nil
}

// Sample returns the source for the bundled sample under base.
func Sample(base string) DataSource {
	return DataSource{Type: SourceTypeSample, Path: base, Valid: true}
}

func typeForName(name string) (SourceType, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return SourceTypeJSON, true
	case ".db", ".sqlite", ".sqlite3":
		return SourceTypeSQLite, true
	}
	return "", false
}

func priority(t SourceType) int {
	if t == SourceTypeSQLite {
		return PrioritySQLite
	}
	return PriorityJSON
}

func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}
