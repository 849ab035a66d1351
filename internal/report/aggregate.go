// Package report computes period-bounded views over the attendance record
// set. Minute totals are summed from parsed durations; unparsable or null
// duration text counts the record's presence but contributes zero minutes.
package report

import (
	"errors"
	"sort"

	"manabitrack/internal/duration"
	"manabitrack/internal/model"
)

// ErrInvalidRange is returned when a report range has start after end.
var ErrInvalidRange = errors.New("report: start date after end date")

// SchoolDaily is one (school, day) aggregation row.
type SchoolDaily struct {
	SchoolID     string `json:"schoolId"`
	SchoolName   string `json:"schoolName"`
	Date         string `json:"date"`
	Count        int    `json:"count"`
	TotalMinutes int    `json:"totalMinutes"`
	TotalText    string `json:"totalText"`
}

// StudentTotal is one student's totals over the range. Students with no
// matching records appear with zero totals.
type StudentTotal struct {
	StudentID     string `json:"studentId"`
	StudentNumber string `json:"studentNumber"`
	Name          string `json:"name"`
	Days          int    `json:"days"`
	TotalMinutes  int    `json:"totalMinutes"`
	TotalText     string `json:"totalText"`
}

// DetailRow is one attendance record joined with its student and school.
type DetailRow struct {
	StudentNumber string `json:"studentNumber"`
	Name          string `json:"name"`
	Date          string `json:"date"`
	SchoolName    string `json:"schoolName"`
	CheckInTime   string `json:"checkInTime"`
	CheckOutTime  string `json:"checkOutTime"`
	Duration      string `json:"duration"`
}

// StudentSummary is the school console's per-student view: total days and
// average duration over completed sessions only.
type StudentSummary struct {
	StudentNumber string `json:"studentNumber"`
	Name          string `json:"name"`
	TotalDays     int    `json:"totalDays"`
	AverageText   string `json:"averageText"`
}

// ValidateRange checks an inclusive [start, end] date range.
func ValidateRange(start, end string) error {
	if start == "" || end == "" || start > end {
		return ErrInvalidRange
	}
	return nil
}

func inRange(date, start, end string) bool {
	return date >= start && date <= end
}

func parsedMinutes(dur *string) int {
	if dur == nil {
		return 0
	}
	minutes, ok := duration.Parse(*dur)
	if !ok {
		return 0
	}
	return minutes
}

// SchoolDailyReport groups matching records by (school, day), sorted by
// school display name then date.
func SchoolDailyReport(ds *model.Dataset, start, end string) ([]SchoolDaily, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	schoolNames := make(map[string]string, len(ds.Schools))
	for _, sch := range ds.Schools {
		schoolNames[sch.ID] = sch.Name
	}

	type key struct{ schoolID, date string }
	grouped := map[key]*SchoolDaily{}
	for _, rec := range ds.Attendance {
		if !inRange(rec.CheckInDate, start, end) {
			continue
		}
		k := key{rec.SchoolID, rec.CheckInDate}
		row, ok := grouped[k]
		if !ok {
			row = &SchoolDaily{
				SchoolID:   rec.SchoolID,
				SchoolName: schoolNames[rec.SchoolID],
				Date:       rec.CheckInDate,
			}
			grouped[k] = row
		}
		row.Count++
		row.TotalMinutes += parsedMinutes(rec.Duration)
	}

	rows := make([]SchoolDaily, 0, len(grouped))
	for _, row := range grouped {
		row.TotalText = duration.Format(row.TotalMinutes)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SchoolName != rows[j].SchoolName {
			return rows[i].SchoolName < rows[j].SchoolName
		}
		return rows[i].Date < rows[j].Date
	})
	return rows, nil
}

// StudentTotals sums each student's matching records, sorted by student
// number. Every student appears, zero totals included.
func StudentTotals(ds *model.Dataset, start, end string) ([]StudentTotal, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	totals := make(map[string]*StudentTotal, len(ds.Students))
	rows := make([]StudentTotal, 0, len(ds.Students))
	for _, st := range ds.Students {
		totals[st.ID] = &StudentTotal{
			StudentID:     st.ID,
			StudentNumber: st.StudentNumber,
			Name:          st.Name,
		}
	}

	for _, rec := range ds.Attendance {
		if !inRange(rec.CheckInDate, start, end) {
			continue
		}
		row, ok := totals[rec.StudentID]
		if !ok {
			continue // record for a deleted student
		}
		row.Days++
		row.TotalMinutes += parsedMinutes(rec.Duration)
	}

	for _, st := range ds.Students {
		row := totals[st.ID]
		row.TotalText = duration.Format(row.TotalMinutes)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].StudentNumber < rows[j].StudentNumber
	})
	return rows, nil
}

// Detail returns one row per matching record, sorted by student number
// then date. Records whose student no longer exists are omitted.
func Detail(ds *model.Dataset, start, end string) ([]DetailRow, error) {
	if err := ValidateRange(start, end); err != nil {
		return nil, err
	}

	students := make(map[string]model.Student, len(ds.Students))
	for _, st := range ds.Students {
		students[st.ID] = st
	}
	schoolNames := make(map[string]string, len(ds.Schools))
	for _, sch := range ds.Schools {
		schoolNames[sch.ID] = sch.Name
	}

	rows := []DetailRow{}
	for _, rec := range ds.Attendance {
		if !inRange(rec.CheckInDate, start, end) {
			continue
		}
		st, ok := students[rec.StudentID]
		if !ok {
			continue
		}
		row := DetailRow{
			StudentNumber: st.StudentNumber,
			Name:          st.Name,
			Date:          rec.CheckInDate,
			SchoolName:    schoolNames[rec.SchoolID],
			CheckInTime:   rec.CheckInTime,
		}
		if rec.CheckOutTime != nil {
			row.CheckOutTime = *rec.CheckOutTime
		}
		if rec.Duration != nil {
			row.Duration = *rec.Duration
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].StudentNumber != rows[j].StudentNumber {
			return rows[i].StudentNumber < rows[j].StudentNumber
		}
		return rows[i].Date < rows[j].Date
	})
	return rows, nil
}

// StudentSummaries computes the school console's roster view: every
// student of the school with total attendance days and average completed
// session length ("-" when no session completed).
func StudentSummaries(ds *model.Dataset, schoolID string) []StudentSummary {
	byStudent := map[string][]model.AttendanceRecord{}
	for _, rec := range ds.Attendance {
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}

	rows := []StudentSummary{}
	for _, st := range ds.Students {
		if st.SchoolID != schoolID {
			continue
		}
		records := byStudent[st.ID]
		totalMinutes, completed := 0, 0
		for _, rec := range records {
			if rec.Duration == nil {
				continue
			}
			if minutes, ok := duration.Parse(*rec.Duration); ok {
				totalMinutes += minutes
				completed++
			}
		}
		row := StudentSummary{
			StudentNumber: st.StudentNumber,
			Name:          st.Name,
			TotalDays:     len(records),
			AverageText:   "-",
		}
		if completed > 0 {
			row.AverageText = duration.Format(totalMinutes / completed)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].StudentNumber < rows[j].StudentNumber
	})
	return rows
}
