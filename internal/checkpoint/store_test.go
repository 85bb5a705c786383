package checkpoint

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/git-pkgs/npmscan/internal/scan"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "progress.yaml"))

	state := scan.NewState([]string{"a", "b", "c"})
	state.Apply("a", scan.Found([]scan.VersionRecord{{
		Version:      "1.2.0",
		Published:    "2024-06-01T00:00:00.000Z",
		PublishedAt:  time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		Description:  "a package",
		Author:       "azer",
		Dependencies: 2,
	}}))
	state.Apply("b", scan.LookupFailed("connection refused"))

	if err := store.Save(state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, state) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, state)
	}
}

func TestSaveLoadRoundTripEmpty(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "progress.yaml"))
	state := scan.NewState([]string{"a"})

	if err := store.Save(state); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(loaded, state) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", loaded, state)
	}
}

func TestLoadMissingIsAbsent(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.yaml"))
	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load = %v, want nil error for missing file", err)
	}
	if loaded != nil {
		t.Errorf("Load = %+v, want nil", loaded)
	}
}

func TestLoadMalformedReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewStore(path)
	if _, err := store.Load(); err == nil {
		t.Error("Load = nil error for malformed checkpoint, want a reportable warning")
	}
}

func TestLoadRejectsForeignResolvedNames(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			"result outside package list",
			"packages: [a]\nscanned: [a]\nresults:\n  a:\n    status: found\n  ghost:\n    status: found\n",
		},
		{
			"scanned outside package list",
			"packages: [a]\nscanned: [ghost]\nresults: {}\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "progress.yaml")
			if err := os.WriteFile(path, []byte(tt.doc), 0o644); err != nil {
				t.Fatal(err)
			}

			store := NewStore(path)
			if _, err := store.Load(); err == nil {
				t.Error("Load = nil error for a checkpoint whose resolved names are not a subset of its package list")
			}
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "progress.yaml"))

	state := scan.NewState([]string{"a", "b"})
	if err := store.Save(state); err != nil {
		t.Fatal(err)
	}
	state.Apply("a", scan.Found(nil))
	if err := store.Save(state); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded.Scanned) != 1 || loaded.Scanned[0] != "a" {
		t.Errorf("Scanned = %v, want [a]", loaded.Scanned)
	}
}

func TestRemove(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "progress.yaml"))
	if err := store.Save(scan.NewState([]string{"a"})); err != nil {
		t.Fatal(err)
	}

	if err := store.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Error("checkpoint still exists after Remove")
	}

	// Removing an absent checkpoint is fine.
	if err := store.Remove(); err != nil {
		t.Errorf("second Remove = %v, want nil", err)
	}
}

func TestPathForDeterministic(t *testing.T) {
	a := PathFor("lists/packages.csv")
	b := PathFor("lists/packages.csv")
	if a != b {
		t.Errorf("PathFor not deterministic: %q vs %q", a, b)
	}

	other := PathFor("other/packages.csv")
	if filepath.Base(a) == filepath.Base(other) {
		t.Errorf("same checkpoint name for different inputs: %q", filepath.Base(a))
	}

	if filepath.Dir(a) != "lists" {
		t.Errorf("checkpoint dir = %q, want next to the input", filepath.Dir(a))
	}
}
