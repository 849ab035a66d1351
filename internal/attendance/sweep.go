package attendance

import (
	"manabitrack/internal/duration"
	"manabitrack/internal/model"
)

// SweepResult reports what a cutoff sweep closed and what it had to skip.
type SweepResult struct {
	ClosedCount      int      `json:"closedCount"`
	ClosedStudentIDs []string `json:"closedStudentIds"`
	SkippedIDs       []string `json:"skippedIds,omitempty"`
}

// Sweep closes every open record for today at the cutoff time. scope limits
// the sweep to one school; empty means all schools. records is mutated in
// place and returned. Records whose check-in lies after the cutoff are
// skipped (clock skew) and reported, never fatal. Running the sweep again
// with no newly opened sessions closes nothing.
func Sweep(records []model.AttendanceRecord, cutoff, today, scope string) ([]model.AttendanceRecord, SweepResult) {
	var res SweepResult
	for i := range records {
		rec := &records[i]
		if rec.CheckInDate != today || !rec.Open() {
			continue
		}
		if scope != "" && rec.SchoolID != scope {
			continue
		}
		minutes, err := duration.ElapsedClock(rec.CheckInTime, cutoff)
		if err != nil {
			res.SkippedIDs = append(res.SkippedIDs, rec.ID)
			continue
		}
		out := cutoff
		dur := duration.Format(minutes)
		rec.CheckOutTime = &out
		rec.Duration = &dur
		res.ClosedCount++
		res.ClosedStudentIDs = append(res.ClosedStudentIDs, rec.StudentID)
	}
	return records, res
}
