package attendance

import (
	"context"
	"errors"
	"log"
	"sort"
	"strconv"
	"sync"
	"time"

	"manabitrack/internal/model"
	"manabitrack/internal/queue"
	"manabitrack/internal/store"
)

// ErrUnknownPending is returned when a confirm or discard names a pending
// transition that does not exist or was already consumed.
var ErrUnknownPending = errors.New("attendance: unknown pending transition")

// Service owns every mutation of the record set. One mutex serializes
// confirm, sweep and import per process: mutating operations run to
// completion before the next is accepted, and readers never observe a
// half-updated record.
type Service struct {
	mu    sync.Mutex
	store store.Store
	wf    *Workflow
	q     queue.Queue
	now   func() time.Time
}

// NewService creates a service over the given store. q may be nil when no
// worker is deployed.
func NewService(s store.Store, q queue.Queue) *Service {
	return &Service{
		store: s,
		wf:    NewWorkflow(),
		q:     q,
		now:   time.Now,
	}
}

// WithClock overrides the service clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() string { return s.now().Format(model.DateLayout) }
func (s *Service) clock() string { return s.now().Format(model.ClockLayout) }

// Stage runs the scan pipeline for a decoded token without touching the
// record set. The outcome is either a terminal rejection or a pending
// transition to confirm or discard.
func (s *Service) Stage(ctx context.Context, token, actingSchoolID string, mode Mode) (StagedOutcome, error) {
	if !mode.Valid() {
		return StagedOutcome{Rejection: reject(RejectBadMode, "unknown scan mode %q", mode)}, nil
	}
	ds, err := s.Dataset(ctx)
	if err != nil {
		return StagedOutcome{}, err
	}
	out := s.wf.Stage(ds, token, actingSchoolID, s.today(), s.clock(), mode)
	if out.Rejection != nil {
		scansRejected.WithLabelValues(string(out.Rejection.Kind)).Inc()
	} else {
		scansStaged.WithLabelValues(string(mode)).Inc()
	}
	return out, nil
}

// Confirm applies a staged transition. The transition is revalidated
// against current state first, so a confirm that raced an import or a
// sweep degrades to a classified rejection instead of corrupting the day.
func (s *Service) Confirm(ctx context.Context, pendingID string) (model.AttendanceRecord, *Rejection, error) {
	p, ok := s.wf.Take(pendingID)
	if !ok {
		return model.AttendanceRecord{}, nil, ErrUnknownPending
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return model.AttendanceRecord{}, nil, err
	}

	student := ds.StudentByID(p.StudentID)
	existing := ds.RecordFor(p.StudentID, p.Day)
	transition, rejection := Decide(student, p.SchoolID, p.Day, existing, p.ScanTime, p.Mode)
	if rejection != nil {
		scansRejected.WithLabelValues(string(rejection.Kind)).Inc()
		return model.AttendanceRecord{}, rejection, nil
	}

	switch transition.Kind {
	case TransitionCreateCheckIn:
		ds.Attendance = append(ds.Attendance, transition.Record)
	case TransitionCompleteCheckOut:
		for i := range ds.Attendance {
			if ds.Attendance[i].ID == transition.Record.ID {
				ds.Attendance[i] = transition.Record
				break
			}
		}
	}

	if err := store.SaveCollection(ctx, s.store, model.CollectionAttendance, ds.Attendance); err != nil {
		return model.AttendanceRecord{}, nil, err
	}

	scansConfirmed.WithLabelValues(string(transition.Kind)).Inc()
	s.publish(ctx, eventType(transition.Kind), transition.Record.ID)
	return transition.Record, nil, nil
}

// Discard drops a staged transition without any record-set effect.
func (s *Service) Discard(pendingID string) error {
	if !s.wf.Discard(pendingID) {
		return ErrUnknownPending
	}
	return nil
}

// RunSweep closes today's open sessions at the cutoff clock time. scope
// limits the sweep to one school; empty sweeps every school.
func (s *Service) RunSweep(ctx context.Context, cutoff, scope string) (SweepResult, error) {
	if _, err := time.Parse(model.ClockLayout, cutoff); err != nil {
		return SweepResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return SweepResult{}, err
	}

	records, res := Sweep(ds.Attendance, cutoff, s.today(), scope)
	if res.ClosedCount == 0 {
		return res, nil
	}

	if err := store.SaveCollection(ctx, s.store, model.CollectionAttendance, records); err != nil {
		return SweepResult{}, err
	}

	sweepClosed.Add(float64(res.ClosedCount))
	s.publish(ctx, queue.TypeSweep, strconv.Itoa(res.ClosedCount))
	return res, nil
}

// Lock exposes the device-level mutation lock to sibling operations
// (snapshot import) that must not interleave with confirm or sweep.
func (s *Service) Lock() *sync.Mutex { return &s.mu }

// Dataset takes a consistent read of all four collections under the
// mutation lock, so it never straddles a racing import, confirm or sweep.
func (s *Service) Dataset(ctx context.Context) (*model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return store.LoadDataset(ctx, s.store)
}

// TodayRecords returns the school's records for the current day.
func (s *Service) TodayRecords(ctx context.Context, schoolID string) ([]model.AttendanceRecord, error) {
	return s.filterRecords(ctx, schoolID, s.today(), false)
}

// MonthRecords returns the school's records for a "2006-01" month.
func (s *Service) MonthRecords(ctx context.Context, schoolID, month string) ([]model.AttendanceRecord, error) {
	return s.filterRecords(ctx, schoolID, month, true)
}

func (s *Service) filterRecords(ctx context.Context, schoolID, key string, prefix bool) ([]model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return nil, err
	}
	out := []model.AttendanceRecord{}
	for _, rec := range ds.Attendance {
		if rec.SchoolID != schoolID {
			continue
		}
		if prefix {
			if len(rec.CheckInDate) < len(key) || rec.CheckInDate[:len(key)] != key {
				continue
			}
		} else if rec.CheckInDate != key {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CheckInDate != out[j].CheckInDate {
			return out[i].CheckInDate < out[j].CheckInDate
		}
		return out[i].CheckInTime < out[j].CheckInTime
	})
	return out, nil
}

func eventType(kind TransitionKind) string {
	if kind == TransitionCompleteCheckOut {
		return queue.TypeCheckOut
	}
	return queue.TypeCheckIn
}

func (s *Service) publish(ctx context.Context, typ, body string) {
	if s.q == nil {
		return
	}
	if err := s.q.Publish(ctx, queue.Message{Type: typ, Body: []byte(body)}); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}
