package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCalendarCommandPrintsMondayFirstGrid(t *testing.T) {
	out, err := runCLI(t, "calendar", "--year", "2025", "--month", "3", "--tz", "UTC")
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	if !strings.HasPrefix(out, "March 2025\nMo Tu We Th Fr Sa Su\n") {
		t.Fatalf("unexpected header:\n%s", out)
	}
	// 2025-03-01 是周六
	if !strings.Contains(out, "\n"+strings.Repeat("   ", 5)+" 1  2\n") {
		t.Fatalf("expected the 1st under Saturday:\n%s", out)
	}
	if strings.Count(out, "2025-03-") != 31 {
		t.Fatalf("expected a line per day:\n%s", out)
	}
}

func TestCalendarCommandRejectsBadInput(t *testing.T) {
	cases := [][]string{
		{"calendar", "--month", "13"},
		{"calendar", "--tz", "Mars/Olympus"},
		{"calendar", "--lat", "95"},
	}
	for _, args := range cases {
		if _, err := runCLI(t, args...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}

func TestDayCommand(t *testing.T) {
	out, err := runCLI(t, "day", "--date", "2025-03-10", "--tz", "Pacific/Auckland")
	if err != nil {
		t.Fatalf("day: %v", err)
	}
	for _, want := range []string{"2025-03-10  Monday", "Phase:", "Sunrise:", "Moonrise:", "Major bites:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}

	if _, err := runCLI(t, "day", "--date", "10/03/2025"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestPhasesCommandListsThirtyNights(t *testing.T) {
	out, err := runCLI(t, "phases")
	if err != nil {
		t.Fatalf("phases: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 30 || !strings.Contains(lines[0], "Whiro") || !strings.Contains(lines[29], "Mutuwhenua") {
		t.Fatalf("unexpected phase list:\n%s", out)
	}
}

func TestExportImportCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "cli.db"))
	t.Setenv("PHOTO_DIR", filepath.Join(dir, "photos"))
	t.Setenv("GIN_MODE", "test")
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("MINIO_ENDPOINT", "")
	t.Setenv("BACKUP_CRON", "")

	archive := filepath.Join(dir, "out", "backup.zip")
	out, err := runCLI(t, "export", "--out", archive)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if strings.TrimSpace(out) != archive {
		t.Fatalf("expected archive path, got %q", out)
	}
	data, err := os.ReadFile(archive)
	if err != nil || !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("expected zip archive, err=%v", err)
	}

	if _, err := runCLI(t, "import", "--file", archive); err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
	out, err = runCLI(t, "import", "--file", archive, "--yes")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.HasPrefix(out, "imported 0 trips") {
		t.Fatalf("unexpected import output %q", out)
	}

	legacy := filepath.Join(dir, "legacy.json")
	os.WriteFile(legacy, []byte(`{"trips":[{"id":3,"date":"2024-12-24","water":"Manukau"}]}`), 0o644)
	out, err = runCLI(t, "import", "-f", legacy, "-y")
	if err != nil || !strings.HasPrefix(out, "imported 1 trips") {
		t.Fatalf("legacy import: %q (%v)", out, err)
	}
}
