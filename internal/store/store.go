// Package store persists named record collections. The contract mirrors the
// device-local storage the system grew up on: a collection is loaded and
// saved wholesale, and a multi-collection replace is atomic.
package store

import (
	"context"
	"encoding/json"
	"fmt"

	"manabitrack/internal/model"
)

// Store is the persisted collection store. Load returns nil for a
// collection that has never been saved; callers treat that as empty.
type Store interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, payload []byte) error
	// ReplaceAll writes every given collection in one atomic unit.
	ReplaceAll(ctx context.Context, payloads map[string][]byte) error
	Close() error
}

// MarkerInitialized flags a store that has been through first-run setup.
const MarkerInitialized = "systemInitialized"

// LoadDataset materializes all four collections. Absent collections come
// back as empty slices, never nil.
func LoadDataset(ctx context.Context, s Store) (*model.Dataset, error) {
	ds := &model.Dataset{
		Students:   []model.Student{},
		Schools:    []model.School{},
		Users:      []model.AdminUser{},
		Attendance: []model.AttendanceRecord{},
	}
	if err := loadInto(ctx, s, model.CollectionStudents, &ds.Students); err != nil {
		return nil, err
	}
	if err := loadInto(ctx, s, model.CollectionSchools, &ds.Schools); err != nil {
		return nil, err
	}
	if err := loadInto(ctx, s, model.CollectionUsers, &ds.Users); err != nil {
		return nil, err
	}
	if err := loadInto(ctx, s, model.CollectionAttendance, &ds.Attendance); err != nil {
		return nil, err
	}
	return ds, nil
}

func loadInto(ctx context.Context, s Store, name string, out any) error {
	payload, err := s.Load(ctx, name)
	if err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("store: decode %s: %w", name, err)
	}
	return nil
}

// SaveCollection marshals and saves one collection.
func SaveCollection(ctx context.Context, s Store, name string, records any) error {
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", name, err)
	}
	return s.Save(ctx, name, payload)
}

// ReplaceDataset writes all four collections atomically. Used by snapshot
// import; a partial write here would be a correctness violation.
func ReplaceDataset(ctx context.Context, s Store, ds *model.Dataset) error {
	payloads := make(map[string][]byte, 4)
	for name, records := range map[string]any{
		model.CollectionStudents:   ds.Students,
		model.CollectionSchools:    ds.Schools,
		model.CollectionUsers:      ds.Users,
		model.CollectionAttendance: ds.Attendance,
	} {
		payload, err := json.Marshal(records)
		if err != nil {
			return fmt.Errorf("store: encode %s: %w", name, err)
		}
		payloads[name] = payload
	}
	return s.ReplaceAll(ctx, payloads)
}

// Initialized reports whether first-run setup has completed.
func Initialized(ctx context.Context, s Store) (bool, error) {
	payload, err := s.Load(ctx, MarkerInitialized)
	if err != nil {
		return false, err
	}
	return string(payload) == "true", nil
}

// SetInitialized records first-run setup completion.
func SetInitialized(ctx context.Context, s Store) error {
	return s.Save(ctx, MarkerInitialized, []byte("true"))
}
