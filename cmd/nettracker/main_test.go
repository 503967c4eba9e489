package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nettracker/internal/domain"
	"nettracker/internal/logger"
	"nettracker/internal/repository/sqlite"
	"nettracker/internal/service"
)

func TestParseFlagsModes(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"run update", []string{"-run-update"}, false},
		{"create tables", []string{"-create-tables"}, false},
		{"drop tables", []string{"-drop-tables"}, false},
		{"history", []string{"-history", "AA:BB:CC:DD:EE:01"}, false},
		{"label", []string{"-label", "AA:BB:CC:DD:EE:01=phone"}, false},
		{"no mode", nil, true},
		{"two modes", []string{"-run-update", "-drop-tables"}, true},
		{"stray argument", []string{"-show", "extra"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFlags(tt.args, io.Discard)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseFlags(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
		})
	}
}

// testConfig writes a config pointing at a fresh SQLite file
func testConfig(t *testing.T) (configPath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	dbPath = filepath.Join(dir, "nettracker.db")
	configPath = filepath.Join(dir, "nettracker.yaml")

	body := "database:\n  driver: sqlite\n  path: " + dbPath + "\nlogging:\n  level: error\n"
	if err := os.WriteFile(configPath, []byte(body), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("DATABASE_URL", "")
	t.Setenv("NETTRACKER_DB_DRIVER", "")
	return configPath, dbPath
}

func runCmd(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout bytes.Buffer
	code := run(context.Background(), args, &stdout, io.Discard)
	return code, stdout.String()
}

func TestRunSchemaLifecycle(t *testing.T) {
	cfg, _ := testConfig(t)

	if code, _ := runCmd(t, "-config", cfg, "-create-tables"); code != exitOK {
		t.Fatalf("create-tables exit %d", code)
	}
	if code, _ := runCmd(t, "-config", cfg, "-create-tables"); code != exitError {
		t.Errorf("second create-tables should fail, got exit %d", code)
	}
	if code, _ := runCmd(t, "-config", cfg, "-drop-tables"); code != exitOK {
		t.Errorf("drop-tables exit %d", code)
	}
	if code, _ := runCmd(t, "-config", cfg, "-create-tables"); code != exitOK {
		t.Errorf("create-tables after drop exit %d", code)
	}
}

func TestRunUsageErrors(t *testing.T) {
	if code, _ := runCmd(t); code != exitUsage {
		t.Errorf("expected usage exit, got %d", code)
	}
	if code, _ := runCmd(t, "-h"); code != exitOK {
		t.Errorf("expected help exit 0, got %d", code)
	}
	if code, _ := runCmd(t, "-config", filepath.Join(t.TempDir(), "missing.yaml"), "-show"); code != exitError {
		t.Errorf("expected error exit for missing config, got %d", code)
	}
}

func TestRunShowHistoryAndLabel(t *testing.T) {
	cfg, dbPath := testConfig(t)
	if code, _ := runCmd(t, "-config", cfg, "-create-tables"); code != exitOK {
		t.Fatalf("create-tables exit %d", code)
	}

	// Record two passes directly through the service
	repo, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	svc := service.NewPresenceService(repo, nil, service.WithLogger(logger.NewTestLogger()))
	t1 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	lines := []string{"10.0.0.2\tAA:BB:CC:DD:EE:01\tphone", "10.0.0.3\tAA:BB:CC:DD:EE:02\tlaptop"}
	if _, err := svc.Reconcile(context.Background(), lines, t1); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if _, err := svc.Reconcile(context.Background(), lines[1:], t1.Add(time.Minute)); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	repo.Close()

	code, out := runCmd(t, "-config", cfg, "-show")
	if code != exitOK {
		t.Fatalf("show exit %d", code)
	}
	if !strings.Contains(out, "not connected") || !strings.Contains(out, "laptop") {
		t.Errorf("unexpected show output:\n%s", out)
	}

	if code, _ := runCmd(t, "-config", cfg, "-label", "aa:bb:cc:dd:ee:02=work laptop"); code != exitOK {
		t.Fatalf("label exit %d", code)
	}
	if code, _ := runCmd(t, "-config", cfg, "-label", "00:00:00:00:00:00=ghost"); code != exitError {
		t.Errorf("labeling unknown device should fail, got exit %d", code)
	}
	if code, _ := runCmd(t, "-config", cfg, "-label", "no-equals-sign"); code != exitError {
		t.Errorf("malformed label should fail, got exit %d", code)
	}

	code, out = runCmd(t, "-config", cfg, "-show", "-json")
	if code != exitOK {
		t.Fatalf("show -json exit %d", code)
	}
	var rows []domain.PresenceRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("show -json output is not JSON: %v\n%s", err, out)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Label != "work laptop" {
		t.Errorf("expected label on laptop row, got %+v", rows[1])
	}

	code, out = runCmd(t, "-config", cfg, "-history", "AA:BB:CC:DD:EE:01", "-json")
	if code != exitOK {
		t.Fatalf("history exit %d", code)
	}
	var entries []domain.Entry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("history output is not JSON: %v", err)
	}
	if len(entries) != 2 || entries[1].Status.Status != domain.StatusNotConnected {
		t.Errorf("unexpected history: %+v", entries)
	}

	if code, _ := runCmd(t, "-config", cfg, "-history", "00:00:00:00:00:00"); code != exitError {
		t.Errorf("history of unknown device should fail, got exit %d", code)
	}
}
