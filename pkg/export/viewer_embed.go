package export

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ViewerAssetsFS embeds the stylesheet, script and page template that make
// up the standalone HTML export.
//
//go:embed viewer_assets
var ViewerAssetsFS embed.FS

const (
	assetCSS      = "viewer_assets/viewer.css"
	assetJS       = "viewer_assets/viewer.js"
	assetTemplate = "viewer_assets/page.html.tmpl"
)

var (
	pageOnce sync.Once
	pageTmpl *template.Template
	pageErr  error
)

// pageTemplate parses the embedded page template once.
func pageTemplate() (*template.Template, error) {
	pageOnce.Do(func() {
		pageTmpl, pageErr = template.ParseFS(ViewerAssetsFS, assetTemplate)
	})
	return pageTmpl, pageErr
}

func readAsset(name string) (string, error) {
	b, err := ViewerAssetsFS.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read embedded asset %s: %w", name, err)
	}
	return string(b), nil
}

// CopyEmbeddedAssets copies the stylesheet and script to outputDir so a
// page can be restyled without re-exporting.
func CopyEmbeddedAssets(outputDir string) error {
	return fs.WalkDir(ViewerAssetsFS, "viewer_assets", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relPath := strings.TrimPrefix(path, "viewer_assets/")
		if relPath == path || strings.HasSuffix(relPath, ".tmpl") {
			return nil
		}
		destPath := filepath.Join(outputDir, filepath.FromSlash(relPath))
		if d.IsDir() {
			return os.MkdirAll(destPath, 0o755)
		}
		content, err := ViewerAssetsFS.ReadFile(path)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
			return err
		}
		return os.WriteFile(destPath, content, 0o644)
	})
}

// HasEmbeddedAssets reports whether the page template is compiled in.
func HasEmbeddedAssets() bool {
	_, err := ViewerAssetsFS.ReadFile(assetTemplate)
	return err == nil
}
