// Package attendance implements the per-student-per-day lifecycle: the scan
// state machine, the two-phase scan workflow, and the cutoff sweep.
package attendance

import (
	"fmt"

	"github.com/google/uuid"

	"manabitrack/internal/duration"
	"manabitrack/internal/model"
)

// Mode is the operator-selected scan direction. A scan must match the
// student's current state for the day; there is no inferred mode.
type Mode string

const (
	ModeCheckIn  Mode = "checkin"
	ModeCheckOut Mode = "checkout"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeCheckIn || m == ModeCheckOut }

// State is a student's position in the day's lifecycle.
type State string

const (
	StateAbsent   State = "absent"   // no record for the day
	StatePresent  State = "present"  // open record
	StateDeparted State = "departed" // closed record, terminal for the day
)

// StateOf classifies an existing record (nil means absent).
func StateOf(rec *model.AttendanceRecord) State {
	switch {
	case rec == nil:
		return StateAbsent
	case rec.Open():
		return StatePresent
	default:
		return StateDeparted
	}
}

// RejectKind classifies why a scan or sweep entry was not applied.
type RejectKind string

const (
	RejectUnknownStudent  RejectKind = "unknown_student"
	RejectWrongSchool     RejectKind = "wrong_school"
	RejectAlreadyPresent  RejectKind = "already_present"
	RejectAlreadyDeparted RejectKind = "already_departed"
	RejectNoOpenSession   RejectKind = "no_open_session"
	RejectClockSkew       RejectKind = "clock_skew"
	RejectBadMode         RejectKind = "bad_mode"
)

// Rejection is a recovered, user-visible scan outcome. It is a value, not
// an error: the process continues normally.
type Rejection struct {
	Kind    RejectKind `json:"kind"`
	Message string     `json:"message"`
}

func reject(kind RejectKind, format string, args ...any) *Rejection {
	return &Rejection{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// TransitionKind says what a decided transition does to the record set.
type TransitionKind string

const (
	TransitionCreateCheckIn    TransitionKind = "create_checkin"
	TransitionCompleteCheckOut TransitionKind = "complete_checkout"
)

// Transition is a decided, not-yet-applied record change. Record carries
// the full post-transition row.
type Transition struct {
	Kind   TransitionKind
	Record model.AttendanceRecord
}

// Decide computes the transition for one scan. The cross-school guard runs
// before any state lookup. existing is the student's record for day, nil
// when absent. Exactly one of the returns is non-zero.
func Decide(student *model.Student, actingSchoolID, day string, existing *model.AttendanceRecord, scanTime string, mode Mode) (Transition, *Rejection) {
	if student == nil {
		return Transition{}, reject(RejectUnknownStudent, "student not found")
	}
	if student.SchoolID != actingSchoolID {
		return Transition{}, reject(RejectWrongSchool, "%s is registered at another school", student.Name)
	}

	state := StateOf(existing)

	switch mode {
	case ModeCheckIn:
		switch state {
		case StatePresent:
			return Transition{}, reject(RejectAlreadyPresent, "%s is already checked in today", student.Name)
		case StateDeparted:
			return Transition{}, reject(RejectAlreadyDeparted, "%s has already checked out today", student.Name)
		}
		return Transition{
			Kind: TransitionCreateCheckIn,
			Record: model.AttendanceRecord{
				ID:          "ATT" + uuid.NewString(),
				StudentID:   student.ID,
				SchoolID:    actingSchoolID,
				CheckInDate: day,
				CheckInTime: scanTime,
			},
		}, nil

	case ModeCheckOut:
		switch state {
		case StateAbsent:
			return Transition{}, reject(RejectNoOpenSession, "%s has not checked in today", student.Name)
		case StateDeparted:
			return Transition{}, reject(RejectAlreadyDeparted, "%s has already checked out today", student.Name)
		}
		minutes, err := duration.ElapsedClock(existing.CheckInTime, scanTime)
		if err != nil {
			return Transition{}, reject(RejectClockSkew, "check-out %s precedes check-in %s", scanTime, existing.CheckInTime)
		}
		closed := *existing
		out := scanTime
		dur := duration.Format(minutes)
		closed.CheckOutTime = &out
		closed.Duration = &dur
		return Transition{Kind: TransitionCompleteCheckOut, Record: closed}, nil

	default:
		return Transition{}, reject(RejectBadMode, "unknown scan mode %q", mode)
	}
}
