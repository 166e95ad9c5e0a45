// Command paneltool maintains the reading history database offline.
//
//	paneltool migrate                 apply pending schema migrations
//	paneltool prune --older-than 72h  delete readings older than the cutoff
//	paneltool export --limit 50       print readings as JSON lines, newest first
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"thermopanel/internal/config"
	"thermopanel/internal/db"
	"thermopanel/internal/logging"
	"thermopanel/internal/modules/history/repository"
)

const appName = "paneltool"

// Default version is "dev" if not set with -ldflags "-X main.version=..."
var version = "dev"

const usage = `usage: paneltool <command> [flags]
  migrate  apply pending schema migrations
  prune    delete readings older than --older-than
  export   print readings as JSON lines
`

var errUsage = errors.New("usage")

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg, version, appName)

	if err := run(context.Background(), os.Args[1:], cfg, logger, os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, cfg config.Config, logger *slog.Logger, stdout io.Writer) error {
	if len(args) < 1 {
		fmt.Fprint(stdout, usage)
		return errUsage
	}

	cmd, args := args[0], args[1:]
	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	fs.SetOutput(stdout)
	dbPath := fs.String("db", cfg.SQLitePath, "SQLite database path")
	olderThan := fs.Duration("older-than", cfg.HistoryRetention, "prune: delete readings older than this")
	limit := fs.IntP("limit", "n", 100, "export: maximum readings to print")
	since := fs.Duration("since", 0, "export: only readings newer than this (0 = all)")

	switch cmd {
	case "migrate", "prune", "export":
	case "-h", "--help", "help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command: %s", cmd)
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg.SQLitePath = *dbPath
	cfg.SQLiteDSN = ""
	conn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			logger.Error("db close", "error", closeErr)
		}
	}()

	if err := db.Migrate(conn, logger); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	switch cmd {
	case "migrate":
		fmt.Fprintln(stdout, "migrations applied")
		return nil
	case "prune":
		return prune(ctx, conn, *olderThan, stdout)
	default:
		return export(ctx, conn, *since, *limit, stdout)
	}
}

func prune(ctx context.Context, conn *sql.DB, olderThan time.Duration, stdout io.Writer) error {
	if olderThan <= 0 {
		return fmt.Errorf("--older-than must be positive, got %v", olderThan)
	}
	n, err := repository.NewRepository(conn).PruneBefore(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}
	fmt.Fprintf(stdout, "pruned %d readings\n", n)
	return nil
}

func export(ctx context.Context, conn *sql.DB, since time.Duration, limit int, stdout io.Writer) error {
	if limit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", limit)
	}
	var from time.Time
	if since > 0 {
		from = time.Now().Add(-since)
	}
	samples, err := repository.NewRepository(conn).List(ctx, from, time.Time{}, limit)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	enc := json.NewEncoder(stdout)
	for _, s := range samples {
		if err := enc.Encode(s); err != nil {
			return err
		}
	}
	return nil
}
