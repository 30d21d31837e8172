package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rahul4469/photo-studio/internal/term"
	"github.com/rahul4469/photo-studio/internal/ui"
	"gopkg.in/yaml.v3"
)

type photoFlags struct {
	format  string
	outDir  string
	enhance bool
}

func (a *app) analyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	var f photoFlags
	fs.StringVar(&f.format, "format", "text", "output format: text, json or yaml")
	fs.StringVar(&f.outDir, "out", a.cfg.Watch.OutDir, "directory for the enhanced photo")
	fs.BoolVar(&f.enhance, "enhance", false, "enhance after the analysis")
	if err := parse(fs, args); err != nil {
		return err
	}
	return a.runPhoto(ctx, fs, f, ui.FlowAnalyzeFirst)
}

func (a *app) upload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	var f photoFlags
	fs.StringVar(&f.format, "format", "text", "output format: text, json or yaml")
	fs.StringVar(&f.outDir, "out", a.cfg.Watch.OutDir, "directory for the enhanced photo")
	if err := parse(fs, args); err != nil {
		return err
	}
	return a.runPhoto(ctx, fs, f, ui.FlowDirect)
}

func (a *app) runPhoto(ctx context.Context, fs *flag.FlagSet, f photoFlags, flow ui.Flow) error {
	if fs.NArg() != 1 {
		return fmt.Errorf("%s: expected exactly one photo: %w", fs.Name(), errUsage)
	}
	switch f.format {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("%s: unknown format %q: %w", fs.Name(), f.format, errUsage)
	}

	path := fs.Arg(0)
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	printer := term.New(a.stdout)
	text := f.format == "text"
	s := ui.NewSession(uuid.NewString())

	err = a.step(ctx, s, printer, text, ui.Action{
		Kind: ui.ActionSelectFile,
		Flow: flow,
		File: &ui.SelectedFile{
			Name: filepath.Base(path),
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) { return os.Open(path) },
		},
	})
	if err != nil {
		return err
	}

	snap := s.Snapshot()
	if snap.Panel == ui.PanelReport {
		if text {
			if err := printer.Report(ctx, ui.NewReportView(snap.Analysis)); err != nil {
				return err
			}
		}
		if !f.enhance {
			if !text {
				return a.emit(f.format, snap.Analysis)
			}
			return nil
		}
		if err := a.step(ctx, s, printer, text, ui.Action{Kind: ui.ActionEnhance}); err != nil {
			return err
		}
		snap = s.Snapshot()
	}

	if snap.Panel == ui.PanelError {
		if text {
			printer.Error(snap.Error)
		}
		return fmt.Errorf("%s failed: %s", fs.Name(), snap.Error)
	}

	saved, size, err := a.save(ctx, s, f.outDir)
	if err != nil {
		return err
	}
	if !text {
		return a.emit(f.format, map[string]any{
			"analysis": snap.Analysis,
			"result":   snap.Result,
			"saved":    saved,
		})
	}
	printer.Result(ui.NewResultView(snap.Result, *snap.Download), saved, size)
	return nil
}

// step dispatches a and shows the loading panel while the backend works.
func (a *app) step(ctx context.Context, s *ui.Session, printer *term.Printer, text bool, action ui.Action) error {
	run, err := a.controller.Submit(s, action)
	if err != nil || run == nil {
		return err
	}
	stop := func() {}
	if text {
		switch s.Panel() {
		case ui.PanelProcessing:
			stop = printer.Processing(ctx)
		case ui.PanelAnalyzing:
			fmt.Fprintln(a.stdout, "  Analyzing...")
		}
	}
	run(ctx)
	stop()
	return nil
}

// save downloads the enhanced photo of s into dir.
func (a *app) save(ctx context.Context, s *ui.Session, dir string) (string, int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, err
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", 0, err
	}
	defer os.Remove(tmp.Name())

	link, _, err := a.controller.Download(ctx, s, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("download: %w", err)
	}

	out := filepath.Join(dir, filepath.Base(link.Filename))
	if err := os.Rename(tmp.Name(), out); err != nil {
		return "", 0, err
	}
	info, err := os.Stat(out)
	if err != nil {
		return out, 0, nil
	}
	return out, info.Size(), nil
}

// emit writes v as JSON or YAML. YAML goes through JSON first so both
// formats use the same field names.
func (a *app) emit(format string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if format == "json" {
		_, err = fmt.Fprintln(a.stdout, string(data))
		return err
	}

	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return err
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(out)
	return err
}
