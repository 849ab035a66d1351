package store

import (
	"context"
	"testing"

	"manabitrack/internal/model"
)

func TestLoadDatasetEmptyStore(t *testing.T) {
	ds, err := LoadDataset(context.Background(), NewMemory())
	if err != nil {
		t.Fatal(err)
	}
	if ds.Students == nil || ds.Schools == nil || ds.Users == nil || ds.Attendance == nil {
		t.Fatal("collections must be empty slices, not nil")
	}
	if len(ds.Students)+len(ds.Schools)+len(ds.Users)+len(ds.Attendance) != 0 {
		t.Fatal("expected empty dataset")
	}
}

func TestSaveAndLoadCollections(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	students := []model.Student{
		{ID: "STU1", StudentNumber: "S000001", Name: "Tanaka", SchoolID: "SCH1", RegistrationDate: "2024-04-01"},
	}
	if err := SaveCollection(ctx, s, model.CollectionStudents, students); err != nil {
		t.Fatal(err)
	}

	out := "15:30:00"
	dur := "6 hours 30 minutes"
	attendance := []model.AttendanceRecord{
		{ID: "ATT1", StudentID: "STU1", SchoolID: "SCH1", CheckInDate: "2024-04-01", CheckInTime: "09:00:00", CheckOutTime: &out, Duration: &dur},
		{ID: "ATT2", StudentID: "STU1", SchoolID: "SCH1", CheckInDate: "2024-04-02", CheckInTime: "09:05:00"},
	}
	if err := SaveCollection(ctx, s, model.CollectionAttendance, attendance); err != nil {
		t.Fatal(err)
	}

	ds, err := LoadDataset(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds.Students) != 1 || ds.Students[0].StudentNumber != "S000001" {
		t.Fatalf("students round trip broken: %+v", ds.Students)
	}
	if len(ds.Attendance) != 2 {
		t.Fatalf("attendance round trip broken: %+v", ds.Attendance)
	}
	if ds.Attendance[0].Open() {
		t.Fatal("closed record reported open")
	}
	if !ds.Attendance[1].Open() {
		t.Fatal("open record reported closed")
	}
	if ds.Attendance[1].CheckOutTime != nil || ds.Attendance[1].Duration != nil {
		t.Fatal("null checkout fields must stay nil through the store")
	}
}

func TestReplaceDataset(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	if err := SaveCollection(ctx, s, model.CollectionStudents, []model.Student{{ID: "old"}}); err != nil {
		t.Fatal(err)
	}

	ds := &model.Dataset{
		Students:   []model.Student{{ID: "new"}},
		Schools:    []model.School{},
		Users:      []model.AdminUser{},
		Attendance: []model.AttendanceRecord{},
	}
	if err := ReplaceDataset(ctx, s, ds); err != nil {
		t.Fatal(err)
	}

	got, err := LoadDataset(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Students) != 1 || got.Students[0].ID != "new" {
		t.Fatalf("replace did not overwrite: %+v", got.Students)
	}
}

func TestInitializedMarker(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	ok, err := Initialized(ctx, s)
	if err != nil || ok {
		t.Fatalf("fresh store must be uninitialized, got %v %v", ok, err)
	}
	if err := SetInitialized(ctx, s); err != nil {
		t.Fatal(err)
	}
	ok, err = Initialized(ctx, s)
	if err != nil || !ok {
		t.Fatalf("marker not persisted, got %v %v", ok, err)
	}
}
