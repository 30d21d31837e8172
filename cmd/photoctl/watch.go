package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/rahul4469/photo-studio/internal/storage"
	"github.com/rahul4469/photo-studio/internal/term"
	"github.com/rahul4469/photo-studio/internal/watcher"
)

func (a *app) watch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	dir := fs.String("dir", a.cfg.Watch.Dir, "folder to watch")
	out := fs.String("out", a.cfg.Watch.OutDir, "folder for enhanced photos")
	interval := fs.Duration("interval", a.cfg.Watch.Interval, "poll interval")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return fmt.Errorf("watch: unexpected arguments %v: %w", fs.Args(), errUsage)
	}

	printer := term.New(a.stdout)
	opts := watcher.Options{
		Dir:         *dir,
		OutDir:      *out,
		Interval:    *interval,
		Logger:      a.logger,
		OnProcessed: printer.Outcome,
	}
	if a.cfg.ArchiveEnabled() {
		store, err := storage.New(ctx, a.cfg.Storage)
		if err != nil {
			return err
		}
		opts.Archive = store
	}

	fmt.Fprintf(a.stdout, "  Watching:  %s\n  Output:    %s\n  Interval:  %s\n\n  Press Ctrl+C to stop.\n",
		*dir, *out, *interval)

	w := watcher.New(a.controller, opts)
	if err := w.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "\n  Watcher stopped. %d photos tracked.\n  Enhanced photos are in: %s\n", w.Tracked(), *out)
	return nil
}
