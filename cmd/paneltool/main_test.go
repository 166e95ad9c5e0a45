package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"thermopanel/internal/config"
	"thermopanel/internal/db"
	"thermopanel/internal/modules/history/repository"
	"thermopanel/internal/modules/history/types"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		SQLiteDriver:       "sqlite3",
		SQLitePath:         filepath.Join(t.TempDir(), "history.db"),
		SQLiteMaxOpenConns: 1,
		SQLiteMaxIdleConns: 1,
		HistoryRetention:   time.Hour,
	}
}

func seed(t *testing.T, cfg config.Config, samples ...types.Sample) {
	t.Helper()
	conn, err := db.Open(cfg, quietLogger)
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	defer db.Close(conn)
	if err := db.Migrate(conn, quietLogger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := repository.NewRepository(conn)
	for _, s := range samples {
		if err := repo.InsertSample(context.Background(), s); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
}

func TestRun_usage(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), nil, testConfig(t), quietLogger, &out)
	if !errors.Is(err, errUsage) {
		t.Fatalf("run() = %v; want errUsage", err)
	}
	if !strings.Contains(out.String(), "usage: paneltool") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRun_unknownCommand(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"vacuum"}, testConfig(t), quietLogger, &out)
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("run() = %v; want unknown command", err)
	}
}

func TestRun_migrate(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	if err := run(context.Background(), []string{"migrate"}, cfg, quietLogger, &out); err != nil {
		t.Fatalf("run(migrate) = %v", err)
	}
	if strings.TrimSpace(out.String()) != "migrations applied" {
		t.Errorf("output = %q", out.String())
	}
	// Second run finds nothing pending.
	out.Reset()
	if err := run(context.Background(), []string{"migrate"}, cfg, quietLogger, &out); err != nil {
		t.Fatalf("run(migrate) again = %v", err)
	}
}

func TestRun_prune(t *testing.T) {
	cfg := testConfig(t)
	now := time.Now()
	seed(t, cfg,
		types.Sample{Seq: 1, Time: now.Add(-3 * time.Hour), Temperature: 20},
		types.Sample{Seq: 2, Time: now.Add(-2 * time.Hour), Temperature: 21},
		types.Sample{Seq: 3, Time: now.Add(-time.Minute), Temperature: 22},
	)

	var out bytes.Buffer
	if err := run(context.Background(), []string{"prune", "--older-than", "90m"}, cfg, quietLogger, &out); err != nil {
		t.Fatalf("run(prune) = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "pruned 2 readings" {
		t.Errorf("output = %q", got)
	}
}

func TestRun_pruneRejectsNonPositive(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"prune", "--older-than", "0s"}, testConfig(t), quietLogger, &out); err == nil {
		t.Fatal("run(prune 0s) = nil; want error")
	}
}

func TestRun_export(t *testing.T) {
	cfg := testConfig(t)
	now := time.Now()
	seed(t, cfg,
		types.Sample{Seq: 1, Time: now.Add(-2 * time.Hour), Temperature: 20},
		types.Sample{Seq: 2, Time: now.Add(-time.Minute), Temperature: 21},
		types.Sample{Seq: 3, Time: now.Add(-time.Second), Temperature: 22},
	)

	tests := []struct {
		name string
		args []string
		want []uint64
	}{
		{"all", []string{"export"}, []uint64{3, 2, 1}},
		{"limit", []string{"export", "-n", "1"}, []uint64{3}},
		{"since", []string{"export", "--since", "1h"}, []uint64{3, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := run(context.Background(), tt.args, cfg, quietLogger, &out); err != nil {
				t.Fatalf("run(%v) = %v", tt.args, err)
			}
			var got []uint64
			sc := bufio.NewScanner(&out)
			for sc.Scan() {
				var s types.Sample
				if err := json.Unmarshal(sc.Bytes(), &s); err != nil {
					t.Fatalf("line %q: %v", sc.Text(), err)
				}
				got = append(got, s.Seq)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("seqs = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("seqs = %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestRun_badFlag(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), []string{"export", "--bogus"}, testConfig(t), quietLogger, &out); err == nil {
		t.Fatal("run(--bogus) = nil; want error")
	}
}
