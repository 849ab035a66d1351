package model

import "time"

// Collection names used by the persisted store. These match the keys the
// legacy exports were written under, so old snapshot files stay importable.
const (
	CollectionStudents   = "students"
	CollectionSchools    = "schools"
	CollectionUsers      = "users"
	CollectionAttendance = "attendance"
)

// Date and clock layouts. Dates and times are kept as strings throughout:
// ISO dates sort lexicographically and the legacy data was stored this way.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04:05"
)

// Student is a registered student. StudentNumber is the stable scannable
// token printed on the QR card.
type Student struct {
	ID               string `json:"id"`
	StudentNumber    string `json:"studentNumber"`
	Name             string `json:"lastName"`
	SchoolID         string `json:"schoolId"`
	RegistrationDate string `json:"registrationDate"`
	CreatedAt        string `json:"createdAt,omitempty"`
	UpdatedAt        string `json:"updatedAt,omitempty"`
}

// School is an affiliated school console identity.
type School struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	LoginID      string `json:"loginId"`
	PasswordHash string `json:"password,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
	UpdatedAt    string `json:"updatedAt,omitempty"`
}

// AdminUser is a console administrator. PasswordHash is empty until the
// user completes first login and sets a password.
type AdminUser struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	PasswordHash string `json:"password,omitempty"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// Admin roles.
const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
	RoleSchool     = "school"
)

// SeedAdminEmail is the first-run super admin; it cannot be deleted.
const SeedAdminEmail = "admin@system.com"

// AttendanceRecord is one student's session on one calendar day. At most one
// record exists per (StudentID, CheckInDate). CheckOutTime and Duration are
// set together, exactly once, by a check-out scan or the cutoff sweep.
type AttendanceRecord struct {
	ID           string  `json:"id"`
	StudentID    string  `json:"studentId"`
	SchoolID     string  `json:"schoolId"`
	CheckInDate  string  `json:"checkInDate"`
	CheckInTime  string  `json:"checkInTime"`
	CheckOutTime *string `json:"checkOutTime"`
	Duration     *string `json:"duration"`
}

// Open reports whether the session has not been checked out yet.
func (r AttendanceRecord) Open() bool { return r.CheckOutTime == nil }

// Dataset is the materialized view of all four collections. Core operations
// read it wholesale and write it back wholesale.
type Dataset struct {
	Students   []Student          `json:"students"`
	Schools    []School           `json:"schools"`
	Users      []AdminUser        `json:"users"`
	Attendance []AttendanceRecord `json:"attendance"`
}

// Snapshot is the versioned whole-dataset export exchanged between devices.
// Import replaces all four collections; there is no merge.
type Snapshot struct {
	Version           string             `json:"version"`
	ExportedAt        time.Time          `json:"exportedAt"`
	Students          []Student          `json:"students"`
	Schools           []School           `json:"schools"`
	Users             []AdminUser        `json:"users"`
	Attendance        []AttendanceRecord `json:"attendance"`
	SystemInitialized string             `json:"systemInitialized,omitempty"`
}

// SnapshotVersion is written on every export. Kept at the last legacy
// version so exports remain interchangeable with old files.
const SnapshotVersion = "2.1"

// StudentByNumber finds a student by scannable number, nil when absent.
func (d *Dataset) StudentByNumber(number string) *Student {
	for i := range d.Students {
		if d.Students[i].StudentNumber == number {
			return &d.Students[i]
		}
	}
	return nil
}

// StudentByID finds a student by id, nil when absent.
func (d *Dataset) StudentByID(id string) *Student {
	for i := range d.Students {
		if d.Students[i].ID == id {
			return &d.Students[i]
		}
	}
	return nil
}

// SchoolByID finds a school by id, nil when absent.
func (d *Dataset) SchoolByID(id string) *School {
	for i := range d.Schools {
		if d.Schools[i].ID == id {
			return &d.Schools[i]
		}
	}
	return nil
}

// RecordFor returns the attendance record for (studentID, date), nil when
// the student has not checked in that day.
func (d *Dataset) RecordFor(studentID, date string) *AttendanceRecord {
	for i := range d.Attendance {
		if d.Attendance[i].StudentID == studentID && d.Attendance[i].CheckInDate == date {
			return &d.Attendance[i]
		}
	}
	return nil
}
