package logfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dorsic/sr620/internal/domain"
)

func TestRouteSameDayAppendsToOneFile(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRouter(dir, "sr620-")
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	defer r.Close()

	t1 := time.Date(2023, time.May, 15, 1, 2, 3, 233467000, time.UTC)
	t2 := time.Date(2023, time.May, 15, 23, 59, 59, 0, time.UTC)

	if err := r.Route(domain.Record{Timestamp: t1, Value: "1.00000003622E7"}); err != nil {
		t.Fatalf("route first: %v", err)
	}
	if err := r.Route(domain.Record{Timestamp: t2, Value: "1.00000003619E7"}); err != nil {
		t.Fatalf("route second: %v", err)
	}

	names := dataFiles(t, dir)
	if len(names) != 1 {
		t.Fatalf("expected one day file, got %v", names)
	}
	if names[0] != "sr620-20231350102.txt" {
		t.Fatalf("expected sr620-20231350102.txt, got %s", names[0])
	}

	data, err := os.ReadFile(filepath.Join(dir, names[0]))
	if err != nil {
		t.Fatalf("read day file: %v", err)
	}
	want := "1684112523.233467\t1.00000003622E7\n1684195199.000000\t1.00000003619E7\n"
	if string(data) != want {
		t.Fatalf("unexpected content %q, want %q", data, want)
	}
}

func TestRouteDayBoundaryRotates(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRouter(dir, "sr620-")
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	defer r.Close()

	lastOfDay := time.Date(2023, time.May, 15, 23, 59, 59, 0, time.UTC)
	firstOfNext := time.Date(2023, time.May, 16, 0, 0, 5, 0, time.UTC)

	if err := r.Route(domain.Record{Timestamp: lastOfDay, Value: "1"}); err != nil {
		t.Fatalf("route day 135: %v", err)
	}
	if err := r.Route(domain.Record{Timestamp: firstOfNext, Value: "2"}); err != nil {
		t.Fatalf("route day 136: %v", err)
	}

	names := dataFiles(t, dir)
	if len(names) != 2 {
		t.Fatalf("expected two day files, got %v", names)
	}
	if names[0] != "sr620-20231352359.txt" || names[1] != "sr620-20231360000.txt" {
		t.Fatalf("unexpected file names %v", names)
	}
	if got := r.ActivePath(); got != filepath.Join(dir, "sr620-20231360000.txt") {
		t.Fatalf("unexpected active path %s", got)
	}
}

func TestRouteReusesExistingFileAfterRestart(t *testing.T) {
	dir := t.TempDir()

	// A previous process created the day file at 01:02 and wrote one line.
	existing := filepath.Join(dir, "sr620-20231350102.txt")
	if err := os.WriteFile(existing, []byte("1684112523.233467\t1.0E7\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	r, err := NewRouter(dir, "sr620-")
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	defer r.Close()

	// The restarted process routes at 09:30 of the same UTC day.
	later := time.Date(2023, time.May, 15, 9, 30, 0, 0, time.UTC)
	if err := r.Route(domain.Record{Timestamp: later, Value: "2.0E7"}); err != nil {
		t.Fatalf("route after restart: %v", err)
	}

	names := dataFiles(t, dir)
	if len(names) != 1 {
		t.Fatalf("expected the existing file to be reused, got %v", names)
	}
	data, err := os.ReadFile(existing)
	if err != nil {
		t.Fatalf("read day file: %v", err)
	}
	want := "1684112523.233467\t1.0E7\n1684143000.000000\t2.0E7\n"
	if string(data) != want {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestRouteIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()

	// Same leading digits but not a valid data file name; must not be
	// mistaken for the bucket's file.
	if err := os.WriteFile(filepath.Join(dir, "sr620-2023135.bak"), nil, 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	r, err := NewRouter(dir, "sr620-")
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	defer r.Close()

	ts := time.Date(2023, time.May, 15, 9, 30, 0, 0, time.UTC)
	if err := r.Route(domain.Record{Timestamp: ts, Value: "1"}); err != nil {
		t.Fatalf("route: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "sr620-20231350930.txt")); err != nil {
		t.Fatalf("expected a fresh day file: %v", err)
	}
}

func TestNewRouterMissingDirectory(t *testing.T) {
	if _, err := NewRouter(filepath.Join(t.TempDir(), "absent"), "sr620-"); err == nil {
		t.Fatalf("expected error for missing primary directory")
	}
}

func TestRouteRecoversAfterFailedRotation(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRouter(dir, "sr620-")
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	defer r.Close()

	sub := filepath.Join(dir, "gone")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	r.dir = sub
	if err := os.Remove(sub); err != nil {
		t.Fatalf("remove: %v", err)
	}

	ts := time.Date(2023, time.May, 15, 9, 30, 0, 0, time.UTC)
	if err := r.Route(domain.Record{Timestamp: ts, Value: "1"}); err == nil {
		t.Fatalf("expected route to fail without directory")
	}

	// Directory restored: the next record for the same bucket must succeed.
	r.dir = dir
	if err := r.Route(domain.Record{Timestamp: ts.Add(time.Second), Value: "2"}); err != nil {
		t.Fatalf("route after recovery: %v", err)
	}
}

func dataFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names
}
