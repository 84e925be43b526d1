// Command diaryctl runs maintenance tasks against the diary data directory and attachment storage
// without going through the HTTP server.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/natefinch/atomic"
	flag "github.com/spf13/pflag"

	"diaryapi/internal/config"
	"diaryapi/internal/export"
	"diaryapi/internal/janitor"
	"diaryapi/internal/logging"
	"diaryapi/internal/markdown"
	"diaryapi/internal/repository/jsonfile"
	"diaryapi/internal/service"
	"diaryapi/internal/storage"
)

func main() {
	cfg := config.Load()
	log := logging.NewWithWriter(os.Stderr, cfg.LogLevel, cfg.Location)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, log, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	os.Exit(code)
}

// app holds what the commands share. Attachment storage is opened lazily, only sweep needs it.
type app struct {
	cfg   *config.AppConfig
	log   *slog.Logger
	store *jsonfile.DiaryStore
	out   io.Writer
}

type command struct {
	flags *flag.FlagSet
	usage string
	short string
	exec  func(ctx context.Context, a *app, args []string) error
}

func (c *command) name() string {
	name, _, _ := strings.Cut(c.usage, " ")
	return name
}

func commands(cfg *config.AppConfig) []*command {
	pruneFlags := flag.NewFlagSet("prune-backups", flag.ContinueOnError)
	maxAge := pruneFlags.Duration("max-age", cfg.Store.BackupRetention, "delete backups older than this")

	exportFlags := flag.NewFlagSet("export", flag.ContinueOnError)
	format := exportFlags.StringP("format", "f", string(export.FormatJSON), "json, markdown, html or zip")
	outPath := exportFlags.StringP("out", "o", "", "output file, or a directory to receive the default file name (default: current directory)")

	return []*command{
		{
			flags: flag.NewFlagSet("sweep", flag.ContinueOnError),
			usage: "sweep",
			short: "delete every stored image no diary entry references",
			exec:  sweep,
		},
		{
			flags: flag.NewFlagSet("backup", flag.ContinueOnError),
			usage: "backup",
			short: "copy the diary file to a timestamped backup next to it",
			exec:  backup,
		},
		{
			flags: pruneFlags,
			usage: "prune-backups [--max-age 720h]",
			short: "delete old diary backups",
			exec: func(ctx context.Context, a *app, _ []string) error {
				return pruneBackups(ctx, a, *maxAge)
			},
		},
		{
			flags: exportFlags,
			usage: "export [--format json] [--out path]",
			short: "write every diary entry to a file",
			exec: func(ctx context.Context, a *app, _ []string) error {
				return exportDiaries(ctx, a, *format, *outPath)
			},
		},
	}
}

func run(ctx context.Context, cfg *config.AppConfig, log *slog.Logger, stdout, stderr io.Writer, args []string) int {
	cmds := commands(cfg)
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stdout, cmds)
		return 0
	}

	var cmd *command
	for _, c := range cmds {
		if c.name() == args[0] {
			cmd = c
			break
		}
	}
	if cmd == nil {
		fmt.Fprintf(stderr, "error: unknown command %q\n\n", args[0])
		printUsage(stderr, cmds)
		return 2
	}

	cmd.flags.SetOutput(io.Discard)
	if err := cmd.flags.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stdout, "Usage: diaryctl %s\n\n%s\n\nFlags:\n%s", cmd.usage, cmd.short, cmd.flags.FlagUsages())
			return 0
		}
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, "error: invalid configuration:", err)
		return 1
	}

	a := &app{
		cfg: cfg,
		log: log,
		store: jsonfile.NewDiaryStore(cfg.Store.Path(),
			jsonfile.WithLogger(log),
			jsonfile.WithPermissionRepair(cfg.Store.RepairPermissions),
		),
		out: stdout,
	}
	if err := cmd.exec(ctx, a, cmd.flags.Args()); err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}
	return 0
}

func printUsage(w io.Writer, cmds []*command) {
	fmt.Fprintln(w, "Usage: diaryctl <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range cmds {
		fmt.Fprintf(w, "  %-38s %s\n", c.usage, c.short)
	}
}

func sweep(ctx context.Context, a *app, _ []string) error {
	objStore, err := storage.New(a.cfg.Upload, a.cfg.MinIO)
	if err != nil {
		return fmt.Errorf("open %s attachment storage: %w", a.cfg.Upload.Backend, err)
	}
	svc := service.NewDiaryService(a.store, janitor.New(objStore, a.log), a.log)

	n, err := svc.SweepOrphans(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "deleted %d orphaned image(s)\n", n)
	return nil
}

func backup(ctx context.Context, a *app, _ []string) error {
	path, err := a.store.Backup(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, path)
	return nil
}

func pruneBackups(ctx context.Context, a *app, maxAge time.Duration) error {
	if maxAge <= 0 {
		return fmt.Errorf("--max-age must be positive, got %s", maxAge)
	}
	n, err := a.store.PruneBackups(ctx, maxAge)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %d backup(s)\n", n)
	return nil
}

func exportDiaries(ctx context.Context, a *app, format, outPath string) error {
	svc := service.NewExportService(a.store, export.NewExporter(markdown.NewRenderer(), a.cfg.Location))
	file, err := svc.Export(ctx, format)
	if err != nil {
		return err
	}

	dst := outPath
	if dst == "" {
		dst = file.Name
	} else if info, statErr := os.Stat(dst); statErr == nil && info.IsDir() {
		dst = filepath.Join(dst, file.Name)
	}
	if err := atomic.WriteFile(dst, bytes.NewReader(file.Body)); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	fmt.Fprintln(a.out, dst)
	return nil
}
