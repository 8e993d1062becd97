package persist

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/ShayCichocki/swarm/internal/resonance"
	"github.com/ShayCichocki/swarm/internal/signature"
	"github.com/ShayCichocki/swarm/internal/stigmergy"
	"github.com/ShayCichocki/swarm/pkg/models"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// setupTestDB creates a new migrated temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t), DriverSQLite)
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 123456789, time.UTC)

func sampleProfile(id string, revision uint64) resonance.Profile {
	return resonance.Profile{
		ID: id,
		History: []signature.Signature{
			signature.Extract(models.Task{Domain: "research", Keywords: []string{"Go", "sqlite"}, Complexity: models.Float(0.25)}),
			signature.Extract(models.Task{Domain: "coding"}),
		},
		SuccessCount:           3,
		FailureCount:           2,
		AverageQuality:         0.6123456789,
		SpecializationStrength: 0.8765,
		Revision:               revision,
		CreatedAt:              baseTime,
		UpdatedAt:              baseTime.Add(time.Duration(revision) * time.Second),
	}
}

func sampleSignals() []stigmergy.Signal {
	return []stigmergy.Signal{
		{TaskID: "t1", Approach: "approach_A", Strength: 90, DepositedAt: baseTime, DepositedBy: "w1", SuccessMetric: 0.9, Deposits: 1},
		{TaskID: "t1", Approach: "approach_B", Strength: 27.5, DepositedAt: baseTime.Add(time.Minute), DepositedBy: "w2", SuccessMetric: 0.47, Deposits: 4},
		{TaskID: "t2", Approach: "approach_C", Strength: 3.25, DepositedAt: baseTime.Add(time.Hour), SuccessMetric: 0.1, Deposits: 2},
	}
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path, "")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if db.Driver() != DriverSQLite {
		t.Errorf("Driver() = %q, want %q", db.Driver(), DriverSQLite)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "a", "b", "c")
	db, err := Open(filepath.Join(nested, "test.db"), DriverSQLite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(tempDBPath(t), "postgres")
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("Open() error = %v, want ErrUnknownDriver", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	var version int
	if err := db.conn.QueryRow("SELECT MAX(version) FROM schema_version").Scan(&version); err != nil {
		t.Fatalf("query version: %v", err)
	}
	if version != 2 {
		t.Errorf("schema version = %d, want 2", version)
	}
}

func TestProfiles_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	want := []resonance.Profile{sampleProfile("sp-a", 3), sampleProfile("sp-b", 1)}
	for _, p := range want {
		if err := db.SaveProfile(ctx, p); err != nil {
			t.Fatalf("SaveProfile(%s) failed: %v", p.ID, err)
		}
	}

	got, err := db.LoadProfiles(ctx)
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadProfiles() =\n%+v\nwant\n%+v", got, want)
	}
}

func TestSaveProfile_StaleRevisionIgnored(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	newer := sampleProfile("sp-a", 5)
	newer.SuccessCount = 10
	if err := db.SaveProfile(ctx, newer); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}

	stale := sampleProfile("sp-a", 4)
	stale.SuccessCount = 1
	if err := db.SaveProfile(ctx, stale); err != nil {
		t.Fatalf("SaveProfile stale failed: %v", err)
	}

	got, err := db.LoadProfiles(ctx)
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}
	if len(got) != 1 || got[0].SuccessCount != 10 || got[0].Revision != 5 {
		t.Errorf("stale write was applied: %+v", got)
	}

	newest := sampleProfile("sp-a", 6)
	newest.SuccessCount = 11
	if err := db.SaveProfile(ctx, newest); err != nil {
		t.Fatalf("SaveProfile newest failed: %v", err)
	}
	got, _ = db.LoadProfiles(ctx)
	if got[0].SuccessCount != 11 {
		t.Errorf("SuccessCount = %d, want 11", got[0].SuccessCount)
	}
}

func TestDeleteProfiles(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, id := range []string{"sp-a", "sp-b", "sp-c"} {
		if err := db.SaveProfile(ctx, sampleProfile(id, 1)); err != nil {
			t.Fatalf("SaveProfile failed: %v", err)
		}
	}
	if err := db.DeleteProfiles(ctx, []string{"sp-a", "sp-c", "sp-missing"}); err != nil {
		t.Fatalf("DeleteProfiles failed: %v", err)
	}
	if err := db.DeleteProfiles(ctx, nil); err != nil {
		t.Fatalf("DeleteProfiles(nil) failed: %v", err)
	}

	got, err := db.LoadProfiles(ctx)
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "sp-b" {
		t.Errorf("LoadProfiles() = %+v, want only sp-b", got)
	}
}

func TestSignals_RoundTripAndReplace(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	want := sampleSignals()
	for _, s := range want {
		if err := db.SaveSignal(ctx, s); err != nil {
			t.Fatalf("SaveSignal failed: %v", err)
		}
	}

	updated := want[0]
	updated.Strength = 100
	updated.Deposits = 2
	if err := db.SaveSignal(ctx, updated); err != nil {
		t.Fatalf("SaveSignal update failed: %v", err)
	}
	want[0] = updated

	got, err := db.LoadSignals(ctx)
	if err != nil {
		t.Fatalf("LoadSignals failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadSignals() =\n%+v\nwant\n%+v", got, want)
	}

	if err := db.ReplaceSignals(ctx, want[2:]); err != nil {
		t.Fatalf("ReplaceSignals failed: %v", err)
	}
	got, err = db.LoadSignals(ctx)
	if err != nil {
		t.Fatalf("LoadSignals failed: %v", err)
	}
	if !reflect.DeepEqual(got, want[2:]) {
		t.Errorf("after replace LoadSignals() = %+v, want %+v", got, want[2:])
	}

	if err := db.ReplaceSignals(ctx, nil); err != nil {
		t.Fatalf("ReplaceSignals(nil) failed: %v", err)
	}
	got, _ = db.LoadSignals(ctx)
	if len(got) != 0 {
		t.Errorf("expected empty signal table, got %d rows", len(got))
	}
}

func TestDB_PersistsAcrossReopen(t *testing.T) {
	path := tempDBPath(t)
	ctx := context.Background()

	db, err := Open(path, DriverSQLite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	if err := db.SaveProfile(ctx, sampleProfile("sp-a", 1)); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}
	db.Close()

	store, err := OpenStore(DriverSQLite, path)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	defer store.Close()

	got, err := store.LoadProfiles(ctx)
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "sp-a" {
		t.Errorf("LoadProfiles() = %+v", got)
	}
}

func TestDB_CgoDriver(t *testing.T) {
	db, err := Open(tempDBPath(t), DriverSQLite3)
	if err != nil {
		t.Skipf("sqlite3 driver unavailable: %v", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		t.Skipf("sqlite3 driver unavailable: %v", err)
	}

	ctx := context.Background()
	want := sampleProfile("sp-cgo", 2)
	if err := db.SaveProfile(ctx, want); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}
	got, err := db.LoadProfiles(ctx)
	if err != nil {
		t.Fatalf("LoadProfiles failed: %v", err)
	}
	if len(got) != 1 || !reflect.DeepEqual(got[0], want) {
		t.Errorf("LoadProfiles() = %+v, want %+v", got, want)
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	_, err := OpenStore("csv", filepath.Join(t.TempDir(), "x"))
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("OpenStore() error = %v, want ErrUnknownDriver", err)
	}
}
