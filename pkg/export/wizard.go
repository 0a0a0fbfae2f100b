package export

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/threadview/pkg/config"
	"github.com/vanderheijden86/threadview/pkg/filter"
	"github.com/vanderheijden86/threadview/pkg/render"
)

// WizardConfig holds the answers of the export wizard.
type WizardConfig struct {
	Formats   []Format      `json:"formats"`
	OutputDir string        `json:"output_dir"`
	LeafID    string        `json:"-"`
	Filter    filter.Config `json:"filter"`
}

// Wizard asks which formats to write, where, and for which branch.
type Wizard struct {
	config *WizardConfig
	source string
	leaves []render.LeafOption
}

// NewWizard creates a wizard for the document named source. defaultDir is
// proposed as output directory.
func NewWizard(source, defaultDir string, leaves []render.LeafOption, current filter.Config) *Wizard {
	if defaultDir == "" {
		defaultDir = "."
	}
	return &Wizard{
		config: &WizardConfig{
			Formats:   []Format{FormatHTML, FormatMarkdown},
			OutputDir: defaultDir,
			Filter:    current,
		},
		source: source,
		leaves: leaves,
	}
}

func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm falls back to accessible prompts when stdin is not a terminal.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run collects the answers. Previously saved answers are offered as
// defaults.
func (w *Wizard) Run() (*WizardConfig, error) {
	if saved, err := LoadWizardConfig(); err == nil && saved != nil {
		if len(saved.Formats) > 0 {
			w.config.Formats = saved.Formats
		}
		if saved.OutputDir != "" {
			w.config.OutputDir = saved.OutputDir
		}
	}

	fmt.Println("")
	fmt.Printf("Export %s\n", w.source)
	fmt.Println("────────────────────────────")

	formats := make([]string, 0, len(w.config.Formats))
	for _, f := range w.config.Formats {
		formats = append(formats, string(f))
	}
	options := make([]huh.Option[string], 0, len(Formats()))
	for _, f := range Formats() {
		options = append(options, huh.NewOption(formatDescription(f), string(f)))
	}
	outputDir := w.config.OutputDir

	fields := []huh.Field{
		huh.NewMultiSelect[string]().
			Title("Formats").
			Options(options...).
			Value(&formats).
			Validate(func(v []string) error {
				if len(v) == 0 {
					return errors.New("pick at least one format")
				}
				return nil
			}),
		huh.NewInput().
			Title("Output directory").
			Value(&outputDir).
			Placeholder(w.config.OutputDir),
		huh.NewConfirm().
			Title("Include system messages?").
			Value(&w.config.Filter.ShowSystem),
		huh.NewConfirm().
			Title("Include hidden messages?").
			Value(&w.config.Filter.ShowHidden),
	}

	leafID := ""
	if len(w.leaves) > 1 {
		leafOpts := []huh.Option[string]{huh.NewOption("Current branch", "")}
		for _, l := range w.leaves {
			leafOpts = append(leafOpts, huh.NewOption(l.Label, l.ID))
		}
		fields = append(fields, huh.NewSelect[string]().
			Title("Branch").
			Options(leafOpts...).
			Value(&leafID))
	}

	if err := newForm(huh.NewGroup(fields...)).Run(); err != nil {
		return nil, err
	}

	w.config.Formats = w.config.Formats[:0]
	for _, f := range formats {
		w.config.Formats = append(w.config.Formats, Format(f))
	}
	if strings.TrimSpace(outputDir) != "" {
		w.config.OutputDir = outputDir
	}
	w.config.LeafID = leafID
	fmt.Println("")
	return w.config, nil
}

// Jobs turns the answers into export jobs.
func (c *WizardConfig) Jobs(source string) []Job {
	jobs := make([]Job, 0, len(c.Formats))
	for _, f := range c.Formats {
		jobs = append(jobs, Job{Format: f, Path: DefaultPath(c.OutputDir, source, f)})
	}
	return jobs
}

func formatDescription(f Format) string {
	switch f {
	case FormatHTML:
		return "HTML page"
	case FormatMarkdown:
		return "Markdown transcript"
	case FormatSQLite:
		return "SQLite database"
	case FormatSVG:
		return "Branch diagram (SVG)"
	case FormatPNG:
		return "Branch diagram (PNG)"
	}
	return string(f)
}

// WizardConfigPath returns where the last answers are remembered.
func WizardConfigPath() string {
	dir := config.StateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "export-wizard.json")
}

// LoadWizardConfig loads the saved answers. It returns nil, nil when none
// were saved.
func LoadWizardConfig() (*WizardConfig, error) {
	path := WizardConfigPath()
	if path == "" {
		return nil, fmt.Errorf("could not determine config path")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cfg WizardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SaveWizardConfig remembers the answers for the next run.
func SaveWizardConfig(cfg *WizardConfig) error {
	path := WizardConfigPath()
	if path == "" {
		return fmt.Errorf("could not determine config path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
