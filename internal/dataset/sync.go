// Package dataset implements whole-dataset snapshot sync. Devices
// reconcile by exchanging full snapshots only: import replaces all four
// collections atomically, last import wins, nothing is merged.
package dataset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"manabitrack/internal/model"
	"manabitrack/internal/store"
)

// ErrInvalidSnapshot is returned when a snapshot does not carry all four
// collections. An empty collection is valid; a missing one is not.
var ErrInvalidSnapshot = errors.New("dataset: snapshot missing required collections")

var (
	snapshotsExported = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "manabitrack_snapshots_exported_total",
		Help: "Dataset snapshots exported.",
	})
	snapshotsImported = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "manabitrack_snapshots_imported_total",
		Help: "Dataset snapshots imported.",
	})
)

func init() {
	prometheus.MustRegister(snapshotsExported, snapshotsImported)
}

// Syncer exports and imports snapshots against a store. mu is the
// device-level mutation lock shared with the attendance service, so an
// import can never interleave with a confirm or a sweep.
type Syncer struct {
	store store.Store
	mu    *sync.Mutex
	now   func() time.Time
}

// NewSyncer creates a syncer sharing the given mutation lock.
func NewSyncer(s store.Store, mu *sync.Mutex) *Syncer {
	return &Syncer{store: s, mu: mu, now: time.Now}
}

// Export takes a consistent read of all four collections.
func (s *Syncer) Export(ctx context.Context) (*model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return nil, err
	}
	initialized, err := store.Initialized(ctx, s.store)
	if err != nil {
		return nil, err
	}

	snap := &model.Snapshot{
		Version:    model.SnapshotVersion,
		ExportedAt: s.now().UTC(),
		Students:   ds.Students,
		Schools:    ds.Schools,
		Users:      ds.Users,
		Attendance: ds.Attendance,
	}
	if initialized {
		snap.SystemInitialized = "true"
	}
	snapshotsExported.Inc()
	return snap, nil
}

// ImportSummary reports what an import replaced.
type ImportSummary struct {
	Students   int       `json:"students"`
	Schools    int       `json:"schools"`
	Users      int       `json:"users"`
	Attendance int       `json:"attendance"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Import validates and applies a raw snapshot. All four collections must
// be present (empty is fine); on any failure nothing is written. The
// incoming data is not re-validated beyond structural presence.
func (s *Syncer) Import(ctx context.Context, raw []byte) (*ImportSummary, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	for _, name := range []string{
		model.CollectionStudents,
		model.CollectionSchools,
		model.CollectionUsers,
		model.CollectionAttendance,
	} {
		payload, ok := probe[name]
		if !ok || string(payload) == "null" {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSnapshot, name)
		}
	}

	var snap model.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds := &model.Dataset{
		Students:   snap.Students,
		Schools:    snap.Schools,
		Users:      snap.Users,
		Attendance: snap.Attendance,
	}
	if err := store.ReplaceDataset(ctx, s.store, ds); err != nil {
		return nil, err
	}
	if err := store.SetInitialized(ctx, s.store); err != nil {
		return nil, err
	}

	snapshotsImported.Inc()
	return &ImportSummary{
		Students:   len(snap.Students),
		Schools:    len(snap.Schools),
		Users:      len(snap.Users),
		Attendance: len(snap.Attendance),
		ExportedAt: snap.ExportedAt,
	}, nil
}
