// Command photoctl drives the photo studio from a terminal: analyze and
// enhance single photos, or watch a folder and enhance whatever lands in it.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mfridman/xflag"
	"github.com/rahul4469/photo-studio/internal/config"
	"github.com/rahul4469/photo-studio/internal/crypto"
	"github.com/rahul4469/photo-studio/internal/logging"
	"github.com/rahul4469/photo-studio/internal/models"
	"github.com/rahul4469/photo-studio/internal/services"
	"github.com/rahul4469/photo-studio/internal/ui"
	"github.com/rahul4469/photo-studio/migrations"
)

const usage = `Usage: photoctl <command> [flags] [args]

Commands:
  analyze [--enhance] [--format text|json|yaml] [--out DIR] PHOTO
  upload  [--format text|json|yaml] [--out DIR] PHOTO
  watch   [--dir DIR] [--out DIR] [--interval 2s]
  keygen  print a random secret for SESSION_SECRET or CSRF_SECRET
`

// errUsage is returned for bad invocations; main exits with status 2.
var errUsage = errors.New("usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, errUsage):
		if err != errUsage {
			fmt.Fprintln(os.Stderr, "photoctl:", err)
		}
		os.Exit(2)
	default:
		fmt.Fprintln(os.Stderr, "photoctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return errUsage
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "keygen":
		key, err := crypto.GenerateKeyBase64()
		if err != nil {
			return err
		}
		fmt.Fprintln(stdout, key)
		return nil
	case "analyze", "upload", "watch":
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(stderr, logging.Options{
		Env:    cfg.Server.Environment,
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
	})

	app, cleanup, err := newApp(ctx, cfg, logger, stdout)
	if err != nil {
		return err
	}
	defer cleanup()

	switch cmd {
	case "analyze":
		return app.analyze(ctx, args)
	case "upload":
		return app.upload(ctx, args)
	default:
		return app.watch(ctx, args)
	}
}

type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	stdout     io.Writer
	controller *ui.Controller
}

// newApp wires the controller the same way the web server does, including
// history recording when a database is configured.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) (*app, func(), error) {
	backend, err := services.NewEnhancerClient(cfg.Backend.URL, cfg.Backend.Timeout)
	if err != nil {
		return nil, nil, err
	}

	opts := []ui.Option{ui.WithLogger(logger), ui.WithFlow(cfg.Backend.Flow)}
	cleanup := func() {}

	if cfg.HistoryEnabled() {
		db, err := models.NewDatabase(ctx, models.DefaultDatabaseConfig(cfg.Database.URL))
		if err != nil {
			return nil, nil, err
		}
		if _, err := db.Migrate(ctx, migrations.FS); err != nil {
			db.Close()
			return nil, nil, err
		}
		opts = append(opts, ui.WithRecorder(models.NewHistoryService(db.Pool)))
		cleanup = db.Close
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		stdout:     stdout,
		controller: ui.NewController(backend, opts...),
	}, cleanup, nil
}

// parse parses flags that may appear after positional arguments.
func parse(fs *flag.FlagSet, args []string) error {
	fs.SetOutput(io.Discard)
	if err := xflag.ParseToEnd(fs, args); err != nil {
		return fmt.Errorf("%s: %v: %w", fs.Name(), err, errUsage)
	}
	return nil
}
