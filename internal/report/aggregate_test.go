package report

import (
	"errors"
	"testing"

	"manabitrack/internal/model"
)

func strptr(s string) *string { return &s }

func reportDataset() *model.Dataset {
	return &model.Dataset{
		Students: []model.Student{
			{ID: "STU2", StudentNumber: "S000002", Name: "Suzuki", SchoolID: "SCH-B", RegistrationDate: "2024-01-11"},
			{ID: "STU1", StudentNumber: "S000001", Name: "Tanaka", SchoolID: "SCH-A", RegistrationDate: "2024-01-10"},
			{ID: "STU3", StudentNumber: "S000003", Name: "Sato", SchoolID: "SCH-A", RegistrationDate: "2024-02-01"},
		},
		Schools: []model.School{
			{ID: "SCH-B", Name: "北校"},
			{ID: "SCH-A", Name: "中央校"},
		},
		Users: []model.AdminUser{},
		Attendance: []model.AttendanceRecord{
			{ID: "ATT1", StudentID: "STU1", SchoolID: "SCH-A", CheckInDate: "2024-04-01", CheckInTime: "09:00:00",
				CheckOutTime: strptr("10:00:00"), Duration: strptr("1 hour 0 minutes")},
			// Open session: counts presence, contributes zero minutes.
			{ID: "ATT2", StudentID: "STU3", SchoolID: "SCH-A", CheckInDate: "2024-04-01", CheckInTime: "09:30:00"},
			{ID: "ATT3", StudentID: "STU2", SchoolID: "SCH-B", CheckInDate: "2024-04-02", CheckInTime: "08:00:00",
				CheckOutTime: strptr("12:30:00"), Duration: strptr("4 hours 30 minutes")},
			// Unparsable duration text: presence counts, minutes do not.
			{ID: "ATT4", StudentID: "STU1", SchoolID: "SCH-A", CheckInDate: "2024-04-02", CheckInTime: "09:00:00",
				CheckOutTime: strptr("10:00:00"), Duration: strptr("about an hour")},
			// Outside range.
			{ID: "ATT5", StudentID: "STU1", SchoolID: "SCH-A", CheckInDate: "2024-05-01", CheckInTime: "09:00:00",
				CheckOutTime: strptr("10:00:00"), Duration: strptr("1 hour 0 minutes")},
		},
	}
}

func TestInvalidRange(t *testing.T) {
	ds := reportDataset()
	if _, err := SchoolDailyReport(ds, "2024-04-02", "2024-04-01"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("got %v", err)
	}
	if _, err := StudentTotals(ds, "", "2024-04-01"); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("got %v", err)
	}
	if _, err := Detail(ds, "2024-04-01", ""); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("got %v", err)
	}
}

func TestSchoolDailyReport(t *testing.T) {
	rows, err := SchoolDailyReport(reportDataset(), "2024-04-01", "2024-04-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	// Sorted by school display name ("中央校" < "北校" lexicographically),
	// then date.
	if rows[0].SchoolName != "中央校" || rows[0].Date != "2024-04-01" {
		t.Fatalf("row 0: %+v", rows[0])
	}
	if rows[1].SchoolName != "中央校" || rows[1].Date != "2024-04-02" {
		t.Fatalf("row 1: %+v", rows[1])
	}
	if rows[2].SchoolName != "北校" || rows[2].Date != "2024-04-02" {
		t.Fatalf("row 2: %+v", rows[2])
	}

	// SCH-A on 04-01: two records present, only one parsable duration.
	if rows[0].Count != 2 || rows[0].TotalMinutes != 60 {
		t.Fatalf("count=%d minutes=%d, want 2/60", rows[0].Count, rows[0].TotalMinutes)
	}
	if rows[0].TotalText != "1 hour 0 minutes" {
		t.Fatalf("total text = %q", rows[0].TotalText)
	}
	// SCH-A on 04-02: unparsable duration counts presence only.
	if rows[1].Count != 1 || rows[1].TotalMinutes != 0 {
		t.Fatalf("count=%d minutes=%d, want 1/0", rows[1].Count, rows[1].TotalMinutes)
	}
}

func TestSingleDayRange(t *testing.T) {
	rows, err := SchoolDailyReport(reportDataset(), "2024-04-01", "2024-04-01")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Count != 2 || rows[0].TotalMinutes != 60 {
		t.Fatalf("rows = %+v", rows)
	}
}

func TestStudentTotals(t *testing.T) {
	rows, err := StudentTotals(reportDataset(), "2024-04-01", "2024-04-30")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want all 3 students", len(rows))
	}
	// Sorted by student number.
	if rows[0].StudentNumber != "S000001" || rows[1].StudentNumber != "S000002" || rows[2].StudentNumber != "S000003" {
		t.Fatalf("order: %+v", rows)
	}
	if rows[0].Days != 2 || rows[0].TotalMinutes != 60 {
		t.Fatalf("S000001: %+v", rows[0])
	}
	if rows[1].Days != 1 || rows[1].TotalMinutes != 270 || rows[1].TotalText != "4 hours 30 minutes" {
		t.Fatalf("S000002: %+v", rows[1])
	}
	// Open session only: one day, zero minutes, still listed.
	if rows[2].Days != 1 || rows[2].TotalMinutes != 0 || rows[2].TotalText != "0 hours 0 minutes" {
		t.Fatalf("S000003: %+v", rows[2])
	}
}

func TestStudentTotalsZeroRecords(t *testing.T) {
	rows, err := StudentTotals(reportDataset(), "2023-01-01", "2023-12-31")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	for _, r := range rows {
		if r.Days != 0 || r.TotalMinutes != 0 || r.TotalText != "0 hours 0 minutes" {
			t.Fatalf("zero-range row: %+v", r)
		}
	}
}

func TestDetail(t *testing.T) {
	rows, err := Detail(reportDataset(), "2024-04-01", "2024-04-02")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	// Sorted by student number then date.
	want := []struct{ number, date string }{
		{"S000001", "2024-04-01"},
		{"S000001", "2024-04-02"},
		{"S000002", "2024-04-02"},
		{"S000003", "2024-04-01"},
	}
	for i, w := range want {
		if rows[i].StudentNumber != w.number || rows[i].Date != w.date {
			t.Fatalf("row %d: %+v, want %+v", i, rows[i], w)
		}
	}
	// Open session renders empty checkout and duration.
	if rows[3].CheckOutTime != "" || rows[3].Duration != "" {
		t.Fatalf("open row: %+v", rows[3])
	}
	if rows[0].SchoolName != "中央校" {
		t.Fatalf("school join broken: %+v", rows[0])
	}
}

func TestStudentSummaries(t *testing.T) {
	rows := StudentSummaries(reportDataset(), "SCH-A")
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	// STU1: three records total, two parsable (60 + 60 out-of-range one
	// also counts here: summaries are not range-bounded).
	if rows[0].StudentNumber != "S000001" || rows[0].TotalDays != 3 {
		t.Fatalf("S000001: %+v", rows[0])
	}
	if rows[0].AverageText != "1 hour 0 minutes" {
		t.Fatalf("S000001 average: %q", rows[0].AverageText)
	}
	// STU3 has only an open session: dash average.
	if rows[1].StudentNumber != "S000003" || rows[1].TotalDays != 1 || rows[1].AverageText != "-" {
		t.Fatalf("S000003: %+v", rows[1])
	}
}
