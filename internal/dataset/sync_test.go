package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"manabitrack/internal/model"
	"manabitrack/internal/store"
)

func strptr(s string) *string { return &s }

func seededStore(t *testing.T) store.Store {
	t.Helper()
	ctx := context.Background()
	s := store.NewMemory()
	ds := &model.Dataset{
		Students: []model.Student{
			{ID: "STU1", StudentNumber: "S000001", Name: "Tanaka", SchoolID: "SCH-A", RegistrationDate: "2024-01-10"},
		},
		Schools: []model.School{{ID: "SCH-A", Name: "Central"}},
		Users:   []model.AdminUser{{ID: "USR001", Email: model.SeedAdminEmail, Role: model.RoleSuperAdmin}},
		Attendance: []model.AttendanceRecord{
			{ID: "ATT1", StudentID: "STU1", SchoolID: "SCH-A", CheckInDate: "2024-04-01", CheckInTime: "09:00:00",
				CheckOutTime: strptr("15:30:00"), Duration: strptr("6 hours 30 minutes")},
		},
	}
	if err := store.ReplaceDataset(ctx, s, ds); err != nil {
		t.Fatal(err)
	}
	if err := store.SetInitialized(ctx, s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	var mu sync.Mutex
	syncer := NewSyncer(s, &mu)

	snap, err := syncer.Export(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version != model.SnapshotVersion {
		t.Fatalf("version = %q", snap.Version)
	}
	if snap.ExportedAt.IsZero() {
		t.Fatal("exportedAt not set")
	}
	if snap.SystemInitialized != "true" {
		t.Fatalf("systemInitialized = %q", snap.SystemInitialized)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatal(err)
	}
	summary, err := syncer.Import(ctx, raw)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Students != 1 || summary.Schools != 1 || summary.Users != 1 || summary.Attendance != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	after, err := store.LoadDataset(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Attendance) != 1 || *after.Attendance[0].Duration != "6 hours 30 minutes" {
		t.Fatalf("round trip broke attendance: %+v", after.Attendance)
	}
	if len(after.Students) != 1 || after.Students[0].StudentNumber != "S000001" {
		t.Fatalf("round trip broke students: %+v", after.Students)
	}
}

func TestImportMissingCollection(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	var mu sync.Mutex
	syncer := NewSyncer(s, &mu)

	before, err := store.LoadDataset(ctx, s)
	if err != nil {
		t.Fatal(err)
	}

	raw := []byte(`{"version":"2.1","exportedAt":"2024-04-01T10:00:00Z","students":[],"users":[],"attendance":[]}`)
	if _, err := syncer.Import(ctx, raw); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("got %v, want ErrInvalidSnapshot", err)
	}

	// Nothing was touched.
	after, err := store.LoadDataset(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Students) != len(before.Students) ||
		len(after.Schools) != len(before.Schools) ||
		len(after.Users) != len(before.Users) ||
		len(after.Attendance) != len(before.Attendance) {
		t.Fatal("failed import modified collections")
	}
}

func TestImportNullCollectionRejected(t *testing.T) {
	var mu sync.Mutex
	syncer := NewSyncer(store.NewMemory(), &mu)
	raw := []byte(`{"students":[],"schools":null,"users":[],"attendance":[]}`)
	if _, err := syncer.Import(context.Background(), raw); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("got %v, want ErrInvalidSnapshot", err)
	}
}

func TestImportEmptyCollectionsValid(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	var mu sync.Mutex
	syncer := NewSyncer(s, &mu)

	raw := []byte(`{"version":"2.1","exportedAt":"2024-04-01T10:00:00Z","students":[],"schools":[],"users":[],"attendance":[]}`)
	summary, err := syncer.Import(ctx, raw)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Students != 0 || summary.Attendance != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	after, err := store.LoadDataset(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Students) != 0 || len(after.Attendance) != 0 {
		t.Fatal("empty import did not replace data")
	}
}

func TestImportGarbageRejected(t *testing.T) {
	var mu sync.Mutex
	syncer := NewSyncer(store.NewMemory(), &mu)
	if _, err := syncer.Import(context.Background(), []byte("not json")); !errors.Is(err, ErrInvalidSnapshot) {
		t.Fatalf("got %v", err)
	}
}

func TestEnsureInitialized(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()

	if err := EnsureInitialized(ctx, s); err != nil {
		t.Fatal(err)
	}
	ds, err := store.LoadDataset(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Users) != 1 || ds.Users[0].Email != model.SeedAdminEmail || ds.Users[0].Role != model.RoleSuperAdmin {
		t.Fatalf("seed admin missing: %+v", ds.Users)
	}
	if ds.Users[0].PasswordHash == "" || ds.Users[0].PasswordHash == DefaultAdminPassword {
		t.Fatal("seed password must be stored hashed")
	}

	// Second run leaves the data alone.
	if err := store.SaveCollection(ctx, s, model.CollectionStudents, []model.Student{{ID: "STU1"}}); err != nil {
		t.Fatal(err)
	}
	if err := EnsureInitialized(ctx, s); err != nil {
		t.Fatal(err)
	}
	ds, err = store.LoadDataset(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Students) != 1 {
		t.Fatal("re-running setup wiped data")
	}
}
