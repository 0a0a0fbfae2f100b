package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vanderheijden86/threadview/pkg/config"
	"github.com/vanderheijden86/threadview/pkg/export"
	"github.com/vanderheijden86/threadview/pkg/hooks"
	"github.com/vanderheijden86/threadview/pkg/session"
)

// hooksDir is where .threadview/hooks.yaml is looked up.
const hooksDir = "."

func flagJobs(o options) []export.Job {
	var jobs []export.Job
	add := func(f export.Format, path string) {
		if path != "" {
			jobs = append(jobs, export.Job{Format: f, Path: path})
		}
	}
	add(export.FormatHTML, o.exportHTML)
	add(export.FormatMarkdown, o.exportMD)
	add(export.FormatSQLite, o.exportSQLite)
	add(export.FormatSVG, o.exportSVG)
	add(export.FormatPNG, o.exportPNG)
	return jobs
}

func runExports(sess *session.Session, cfg config.Config, o options, stdout, stderr io.Writer) int {
	snap, err := sess.Snapshot()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	jobs := flagJobs(o)

	if o.exportWizard {
		doc := sess.Document()
		wiz := export.NewWizard(doc.Source, cfg.Export.Dir, sess.Leaves(), sess.State().Filter)
		answers, err := wiz.Run()
		if err != nil {
			fmt.Fprintf(stderr, "Export cancelled: %v\n", err)
			return exitError
		}
		if err := export.SaveWizardConfig(answers); err != nil {
			fmt.Fprintf(stderr, "Warning: could not save export answers: %v\n", err)
		}
		leaf := answers.LeafID
		if leaf == "" {
			leaf = sess.State().LeafID
		}
		answers.Filter.Query = sess.State().Filter.Query
		snap = export.NewSnapshot(doc, leaf, answers.Filter, cfg.TimeFormatter())
		jobs = append(jobs, answers.Jobs(doc.Source)...)
	}

	ctx := context.Background()
	if err := exportWithHooks(ctx, snap, jobs, cfg.Export.NoHooks, stdout); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	for _, job := range jobs {
		fmt.Fprintf(stdout, "Wrote %s (%s)\n", job.Path, job.Format)
	}
	return exitOK
}

// exportWithHooks writes jobs concurrently when no hooks are configured.
// With hooks, every job runs pre-export hooks, the write and post-export
// hooks in turn, so a hook sees exactly one finished file.
func exportWithHooks(ctx context.Context, snap *export.Snapshot, jobs []export.Job, noHooks bool, stdout io.Writer) error {
	probe, err := hooks.RunHooks(hooksDir, hooks.ExportContext{}, noHooks)
	if err != nil {
		return fmt.Errorf("load hooks: %w", err)
	}
	if probe == nil {
		return export.RunAll(ctx, snap, jobs)
	}

	var errs []error
	for _, job := range jobs {
		exec, err := hooks.RunHooks(hooksDir, hookContext(snap, job), noHooks)
		if err != nil {
			return fmt.Errorf("load hooks: %w", err)
		}
		if err := exec.RunPreExport(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Path, err))
			fmt.Fprint(stdout, exec.Summary())
			continue
		}
		if err := export.Write(ctx, snap, job); err != nil {
			errs = append(errs, fmt.Errorf("%s -> %s: %w", job.Format, job.Path, err))
			continue
		}
		if err := exec.RunPostExport(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Path, err))
		}
		fmt.Fprint(stdout, exec.Summary())
	}
	return errors.Join(errs...)
}

func hookContext(snap *export.Snapshot, job export.Job) hooks.ExportContext {
	return hooks.ExportContext{
		ExportPath:   job.Path,
		ExportFormat: string(job.Format),
		Source:       snap.Doc.Source,
		LeafID:       snap.View.LeafID,
		MessageCount: snap.View.Len(),
		Timestamp:    time.Now(),
	}
}
