package attendance

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"manabitrack/internal/model"
)

// PendingTransition is a staged, not-yet-applied scan. It is consumed
// exactly once, by Confirm or Discard. Staging has no side effects on the
// record set.
type PendingTransition struct {
	ID            string         `json:"id"`
	Transition    Transition     `json:"-"`
	Kind          TransitionKind `json:"kind"`
	StudentID     string         `json:"studentId"`
	StudentNumber string         `json:"studentNumber"`
	StudentName   string         `json:"studentName"`
	SchoolID      string         `json:"schoolId"`
	Day           string         `json:"day"`
	ScanTime      string         `json:"scanTime"`
	Mode          Mode           `json:"mode"`
	Duration      string         `json:"duration,omitempty"`
	StagedAt      time.Time      `json:"stagedAt"`
}

// StagedOutcome is the result of staging a scan: either a pending
// transition awaiting confirmation, or a terminal rejection.
type StagedOutcome struct {
	Pending   *PendingTransition `json:"pending,omitempty"`
	Rejection *Rejection         `json:"rejection,omitempty"`
}

// Workflow stages scan transitions and hands them out exactly once. The
// record set is never touched here; commit belongs to the service.
type Workflow struct {
	mu      sync.Mutex
	pending map[string]*PendingTransition
}

// NewWorkflow creates an empty workflow.
func NewWorkflow() *Workflow {
	return &Workflow{pending: make(map[string]*PendingTransition)}
}

// Stage runs the decode→lookup→decide pipeline against the given dataset.
// A rejection is terminal; nothing is retained. On success the pending
// transition is held until Take or Discard. Staging the same student again
// for the same day recomputes from scratch and evicts the superseded
// pending, so an abandoned scanning session leaves nothing behind.
func (w *Workflow) Stage(ds *model.Dataset, token, actingSchoolID, day, scanTime string, mode Mode) StagedOutcome {
	student := ds.StudentByNumber(token)

	var existing *model.AttendanceRecord
	if student != nil {
		existing = ds.RecordFor(student.ID, day)
	}

	transition, rejection := Decide(student, actingSchoolID, day, existing, scanTime, mode)
	if rejection != nil {
		return StagedOutcome{Rejection: rejection}
	}

	p := &PendingTransition{
		ID:            uuid.NewString(),
		Transition:    transition,
		Kind:          transition.Kind,
		StudentID:     student.ID,
		StudentNumber: student.StudentNumber,
		StudentName:   student.Name,
		SchoolID:      actingSchoolID,
		Day:           day,
		ScanTime:      scanTime,
		Mode:          mode,
		StagedAt:      time.Now().UTC(),
	}
	if transition.Record.Duration != nil {
		p.Duration = *transition.Record.Duration
	}

	w.mu.Lock()
	for id, prev := range w.pending {
		if prev.StudentID == p.StudentID && prev.Day == p.Day {
			delete(w.pending, id)
		}
	}
	w.pending[p.ID] = p
	w.mu.Unlock()

	return StagedOutcome{Pending: p}
}

// Take removes and returns a pending transition. The second return is
// false when the id is unknown or already consumed.
func (w *Workflow) Take(id string) (*PendingTransition, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.pending[id]
	if ok {
		delete(w.pending, id)
	}
	return p, ok
}

// Discard drops a pending transition. A true no-op on the record set.
func (w *Workflow) Discard(id string) bool {
	_, ok := w.Take(id)
	return ok
}

// PendingCount reports how many staged transitions await confirmation.
func (w *Workflow) PendingCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
