package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/vanderheijden86/threadview/pkg/debug"
)

// SamplePath is the sample document location relative to the sample base.
const SamplePath = "examples/sample-chatgpt-export.json"

// ErrSampleUnavailable is returned when the sample cannot be fetched from
// the configured base, such as a local file base.
var ErrSampleUnavailable = errors.New("sample unavailable")

// DefaultFetchTimeout bounds a remote load when the context has no deadline.
const DefaultFetchTimeout = 30 * time.Second

// SampleURL resolves SamplePath against base like a browser resolves a
// relative link. Local bases (file:// or no scheme) are rejected.
func SampleURL(base string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("%w: no sample base URL configured", ErrSampleUnavailable)
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: bad base URL: %v", ErrSampleUnavailable, err)
	}
	switch u.Scheme {
	case "http", "https":
	case "file", "":
		return "", fmt.Errorf("%w: %s is local; open the JSON file directly instead", ErrSampleUnavailable, base)
	default:
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrSampleUnavailable, u.Scheme)
	}
	return u.ResolveReference(&url.URL{Path: SamplePath}).String(), nil
}

// LoadSample fetches the sample document relative to base. The document
// source is SamplePath.
func LoadSample(ctx context.Context, client *http.Client, base string, opts ParseOptions) (*Document, error) {
	target, err := SampleURL(base)
	if err != nil {
		return nil, err
	}
	doc, err := fetch(ctx, client, target, SamplePath, opts)
	if err != nil {
		return nil, fmt.Errorf("load sample: %w", err)
	}
	return doc, nil
}

// LoadURL fetches and parses a document over http(s). The document source
// is the last path segment of the URL.
func LoadURL(ctx context.Context, client *http.Client, rawURL string, opts ParseOptions) (*Document, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("bad URL %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	source := path.Base(u.Path)
	if source == "." || source == "/" {
		source = u.Host
	}
	return fetch(ctx, client, u.String(), source, opts)
}

func fetch(ctx context.Context, client *http.Client, target, source string, opts ParseOptions) (*Document, error) {
	if client == nil {
		client = http.DefaultClient
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultFetchTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	debug.Log("loader: GET %s", target)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return ParseReader(resp.Body, source, opts)
}
