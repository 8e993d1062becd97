package persist

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ShayCichocki/swarm/internal/resonance"
)

func TestFileStore_RoundTripAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "swarm.yaml")
	ctx := context.Background()

	store, err := OpenStore(DriverYAML, path)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}

	profiles := []resonance.Profile{sampleProfile("sp-a", 2), sampleProfile("sp-b", 1)}
	for _, p := range profiles {
		if err := store.SaveProfile(ctx, p); err != nil {
			t.Fatalf("SaveProfile failed: %v", err)
		}
	}
	signals := sampleSignals()
	if err := store.ReplaceSignals(ctx, signals); err != nil {
		t.Fatalf("ReplaceSignals failed: %v", err)
	}
	store.Close()

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore failed: %v", err)
	}
	gotProfiles, _ := reopened.LoadProfiles(ctx)
	if !reflect.DeepEqual(gotProfiles, profiles) {
		t.Errorf("LoadProfiles() =\n%+v\nwant\n%+v", gotProfiles, profiles)
	}
	gotSignals, _ := reopened.LoadSignals(ctx)
	if !reflect.DeepEqual(gotSignals, signals) {
		t.Errorf("LoadSignals() =\n%+v\nwant\n%+v", gotSignals, signals)
	}
}

func TestFileStore_StaleRevisionAndDelete(t *testing.T) {
	store, err := OpenFileStore(filepath.Join(t.TempDir(), "swarm.yaml"))
	if err != nil {
		t.Fatalf("OpenFileStore failed: %v", err)
	}
	ctx := context.Background()

	newer := sampleProfile("sp-a", 3)
	if err := store.SaveProfile(ctx, newer); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}
	stale := sampleProfile("sp-a", 2)
	stale.FailureCount = 99
	if err := store.SaveProfile(ctx, stale); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}
	got, _ := store.LoadProfiles(ctx)
	if len(got) != 1 || got[0].FailureCount != newer.FailureCount {
		t.Errorf("stale write was applied: %+v", got)
	}

	if err := store.DeleteProfiles(ctx, []string{"sp-a"}); err != nil {
		t.Fatalf("DeleteProfiles failed: %v", err)
	}
	got, _ = store.LoadProfiles(ctx)
	if len(got) != 0 {
		t.Errorf("expected no profiles, got %d", len(got))
	}
}

func TestFileStore_SaveSignalUpserts(t *testing.T) {
	store, err := OpenFileStore(filepath.Join(t.TempDir(), "swarm.yaml"))
	if err != nil {
		t.Fatalf("OpenFileStore failed: %v", err)
	}
	ctx := context.Background()

	sig := sampleSignals()[0]
	if err := store.SaveSignal(ctx, sig); err != nil {
		t.Fatalf("SaveSignal failed: %v", err)
	}
	sig.Strength = 12
	if err := store.SaveSignal(ctx, sig); err != nil {
		t.Fatalf("SaveSignal failed: %v", err)
	}

	got, _ := store.LoadSignals(ctx)
	if len(got) != 1 || got[0].Strength != 12 {
		t.Errorf("LoadSignals() = %+v", got)
	}
}

func TestWriteSnapshot_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snap.yaml")

	if err := WriteSnapshot(path, Snapshot{Signals: sampleSignals()}); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}
	if err := WriteSnapshot(path, Snapshot{}); err != nil {
		t.Fatalf("WriteSnapshot failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "snap.yaml" {
		t.Errorf("unexpected directory contents: %v", entries)
	}

	snap, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot failed: %v", err)
	}
	if snap.Version != SnapshotVersion || len(snap.Signals) != 0 {
		t.Errorf("ReadSnapshot() = %+v", snap)
	}
}

func TestReadSnapshot(t *testing.T) {
	dir := t.TempDir()

	snap, err := ReadSnapshot(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(snap.Specialists) != 0 || len(snap.Signals) != 0 {
		t.Errorf("expected empty snapshot, got %+v", snap)
	}

	future := filepath.Join(dir, "future.yaml")
	if err := os.WriteFile(future, []byte("version: 99\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSnapshot(future); err == nil || !strings.Contains(err.Error(), "unsupported version") {
		t.Errorf("ReadSnapshot(future) error = %v", err)
	}

	garbage := filepath.Join(dir, "garbage.yaml")
	if err := os.WriteFile(garbage, []byte("specialists: {not: [a list"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadSnapshot(garbage); err == nil {
		t.Error("expected parse error")
	}
}
