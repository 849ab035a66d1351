package report

import (
	"bytes"
	"encoding/csv"
	"sort"
	"strconv"

	"manabitrack/internal/model"
)

// CSV outputs carry a UTF-8 byte-order mark so spreadsheet applications
// detect the encoding. The column order and header text of each report
// kind are a compatibility surface; do not reorder.
const bom = "\uFEFF"

func renderCSV(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(bom)
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RosterCSV renders the student roster export.
func RosterCSV(ds *model.Dataset) ([]byte, error) {
	schoolNames := make(map[string]string, len(ds.Schools))
	for _, sch := range ds.Schools {
		schoolNames[sch.ID] = sch.Name
	}

	students := make([]model.Student, len(ds.Students))
	copy(students, ds.Students)
	sort.Slice(students, func(i, j int) bool {
		return students[i].StudentNumber < students[j].StudentNumber
	})

	rows := make([][]string, 0, len(students))
	for _, st := range students {
		rows = append(rows, []string{st.StudentNumber, st.Name, schoolNames[st.SchoolID], st.RegistrationDate})
	}
	return renderCSV([]string{"student number", "name", "school", "registration date"}, rows)
}

// SchoolDailyCSV renders the per-school-per-day report.
func SchoolDailyCSV(report []SchoolDaily) ([]byte, error) {
	rows := make([][]string, 0, len(report))
	for _, r := range report {
		rows = append(rows, []string{r.SchoolName, r.Date, strconv.Itoa(r.Count), r.TotalText})
	}
	return renderCSV([]string{"school", "date", "student count", "total duration"}, rows)
}

// StudentTotalsCSV renders the per-student totals report.
func StudentTotalsCSV(report []StudentTotal) ([]byte, error) {
	rows := make([][]string, 0, len(report))
	for _, r := range report {
		rows = append(rows, []string{r.StudentNumber, r.Name, strconv.Itoa(r.Days), r.TotalText})
	}
	return renderCSV([]string{"student number", "name", "total days", "total duration"}, rows)
}

// DetailCSV renders the per-record detail report.
func DetailCSV(report []DetailRow) ([]byte, error) {
	rows := make([][]string, 0, len(report))
	for _, r := range report {
		rows = append(rows, []string{r.StudentNumber, r.Name, r.Date, r.SchoolName, r.CheckInTime, r.CheckOutTime, r.Duration})
	}
	return renderCSV([]string{"student number", "name", "date", "school", "check-in time", "check-out time", "total duration"}, rows)
}
