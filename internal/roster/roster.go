// Package roster manages the students, schools and admins collections.
// These are thin guarded edits over the collection store; the attendance
// lifecycle itself lives in internal/attendance.
package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"manabitrack/internal/model"
	"manabitrack/internal/store"
)

var (
	ErrNotFound       = errors.New("roster: not found")
	ErrDuplicateEmail = errors.New("roster: email already registered")
	ErrProtectedAdmin = errors.New("roster: this admin cannot be deleted")
	ErrWeakPassword   = errors.New("roster: password must be at least 8 characters")
	ErrUnknownSchool  = errors.New("roster: unknown school")
)

// Service edits roster collections.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates a roster service.
func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

// WithClock overrides the clock, for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) timestamp() string { return s.now().UTC().Format(time.RFC3339) }
func (s *Service) today() string     { return s.now().Format(model.DateLayout) }

// ---------- Students ----------

// ListStudents returns all students.
func (s *Service) ListStudents(ctx context.Context) ([]model.Student, error) {
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return ds.Students, nil
}

// CreateStudent registers a student and assigns the next scannable number.
func (s *Service) CreateStudent(ctx context.Context, name, schoolID string) (model.Student, error) {
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return model.Student{}, err
	}
	if ds.SchoolByID(schoolID) == nil {
		return model.Student{}, ErrUnknownSchool
	}

	st := model.Student{
		ID:               "STU" + uuid.NewString(),
		StudentNumber:    nextStudentNumber(ds.Students),
		Name:             name,
		SchoolID:         schoolID,
		RegistrationDate: s.today(),
		CreatedAt:        s.timestamp(),
		UpdatedAt:        s.timestamp(),
	}
	ds.Students = append(ds.Students, st)
	if err := store.SaveCollection(ctx, s.store, model.CollectionStudents, ds.Students); err != nil {
		return model.Student{}, err
	}
	return st, nil
}

// nextStudentNumber continues the legacy "S%06d" sequence past the highest
// currently assigned number, so it never collides with an existing card.
func nextStudentNumber(students []model.Student) string {
	max := 0
	for _, st := range students {
		var n int
		if _, err := fmt.Sscanf(st.StudentNumber, "S%06d", &n); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("S%06d", max+1)
}

// UpdateStudent edits name and owning school. The student number never
// changes; it is printed on an issued card.
func (s *Service) UpdateStudent(ctx context.Context, id, name, schoolID string) (model.Student, error) {
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return model.Student{}, err
	}
	if ds.SchoolByID(schoolID) == nil {
		return model.Student{}, ErrUnknownSchool
	}
	for i := range ds.Students {
		if ds.Students[i].ID != id {
			continue
		}
		ds.Students[i].Name = name
		ds.Students[i].SchoolID = schoolID
		ds.Students[i].UpdatedAt = s.timestamp()
		if err := store.SaveCollection(ctx, s.store, model.CollectionStudents, ds.Students); err != nil {
			return model.Student{}, err
		}
		return ds.Students[i], nil
	}
	return model.Student{}, ErrNotFound
}

// DeleteStudent removes a student. Attendance history is kept; reports
// omit rows whose student no longer exists.
func (s *Service) DeleteStudent(ctx context.Context, id string) error {
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return err
	}
	kept := ds.Students[:0]
	found := false
	for _, st := range ds.Students {
		if st.ID == id {
			found = true
			continue
		}
		kept = append(kept, st)
	}
	if !found {
		return ErrNotFound
	}
	return store.SaveCollection(ctx, s.store, model.CollectionStudents, kept)
}

// ---------- Schools ----------

// ListSchools returns all schools.
func (s *Service) ListSchools(ctx context.Context) ([]model.School, error) {
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return ds.Schools, nil
}

// CreateSchool registers a school console with a hashed password.
func (s *Service) CreateSchool(ctx context.Context, name, loginID, password string) (model.School, error) {
	if len(password) < 8 {
		return model.School{}, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.School{}, err
	}

	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return model.School{}, err
	}
	sch := model.School{
		ID:           "SCH" + uuid.NewString(),
		Name:         name,
		LoginID:      loginID,
		PasswordHash: string(hash),
		CreatedAt:    s.timestamp(),
		UpdatedAt:    s.timestamp(),
	}
	ds.Schools = append(ds.Schools, sch)
	if err := store.SaveCollection(ctx, s.store, model.CollectionSchools, ds.Schools); err != nil {
		return model.School{}, err
	}
	return sch, nil
}

// UpdateSchool edits a school; an empty password keeps the current one.
func (s *Service) UpdateSchool(ctx context.Context, id, name, loginID, password string) (model.School, error) {
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return model.School{}, err
	}
	for i := range ds.Schools {
		if ds.Schools[i].ID != id {
			continue
		}
		ds.Schools[i].Name = name
		ds.Schools[i].LoginID = loginID
		if password != "" {
			if len(password) < 8 {
				return model.School{}, ErrWeakPassword
			}
			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return model.School{}, err
			}
			ds.Schools[i].PasswordHash = string(hash)
		}
		ds.Schools[i].UpdatedAt = s.timestamp()
		if err := store.SaveCollection(ctx, s.store, model.CollectionSchools, ds.Schools); err != nil {
			return model.School{}, err
		}
		return ds.Schools[i], nil
	}
	return model.School{}, ErrNotFound
}

// DeleteSchool removes a school console.
func (s *Service) DeleteSchool(ctx context.Context, id string) error {
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return err
	}
	kept := ds.Schools[:0]
	found := false
	for _, sch := range ds.Schools {
		if sch.ID == id {
			found = true
			continue
		}
		kept = append(kept, sch)
	}
	if !found {
		return ErrNotFound
	}
	return store.SaveCollection(ctx, s.store, model.CollectionSchools, kept)
}

// ---------- Admins ----------

// ListAdmins returns all admin users.
func (s *Service) ListAdmins(ctx context.Context) ([]model.AdminUser, error) {
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return nil, err
	}
	return ds.Users, nil
}

// CreateAdmin registers an admin with no password; they set one at first
// login. Emails are unique.
func (s *Service) CreateAdmin(ctx context.Context, name, email, role string) (model.AdminUser, error) {
	if role != model.RoleAdmin && role != model.RoleSuperAdmin {
		return model.AdminUser{}, fmt.Errorf("roster: invalid role %q", role)
	}
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return model.AdminUser{}, err
	}
	for _, u := range ds.Users {
		if u.Email == email {
			return model.AdminUser{}, ErrDuplicateEmail
		}
	}
	user := model.AdminUser{
		ID:        "USR" + uuid.NewString(),
		Name:      name,
		Email:     email,
		Role:      role,
		CreatedAt: s.timestamp(),
	}
	ds.Users = append(ds.Users, user)
	if err := store.SaveCollection(ctx, s.store, model.CollectionUsers, ds.Users); err != nil {
		return model.AdminUser{}, err
	}
	return user, nil
}

// UpdateAdmin edits an admin's name and role. Email is the login identity
// and never changes; the seed admin cannot be demoted.
func (s *Service) UpdateAdmin(ctx context.Context, id, name, role string) (model.AdminUser, error) {
	if role != model.RoleAdmin && role != model.RoleSuperAdmin {
		return model.AdminUser{}, fmt.Errorf("roster: invalid role %q", role)
	}
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return model.AdminUser{}, err
	}
	for i := range ds.Users {
		if ds.Users[i].ID != id {
			continue
		}
		if ds.Users[i].Email == model.SeedAdminEmail && role != model.RoleSuperAdmin {
			return model.AdminUser{}, ErrProtectedAdmin
		}
		ds.Users[i].Name = name
		ds.Users[i].Role = role
		if err := store.SaveCollection(ctx, s.store, model.CollectionUsers, ds.Users); err != nil {
			return model.AdminUser{}, err
		}
		return ds.Users[i], nil
	}
	return model.AdminUser{}, ErrNotFound
}

// DeleteAdmin removes an admin. The seed admin and the acting user
// themselves are protected.
func (s *Service) DeleteAdmin(ctx context.Context, id, actorID string) error {
	if id == actorID {
		return ErrProtectedAdmin
	}
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return err
	}
	kept := ds.Users[:0]
	found := false
	for _, u := range ds.Users {
		if u.ID == id {
			if u.Email == model.SeedAdminEmail {
				return ErrProtectedAdmin
			}
			found = true
			continue
		}
		kept = append(kept, u)
	}
	if !found {
		return ErrNotFound
	}
	return store.SaveCollection(ctx, s.store, model.CollectionUsers, kept)
}

// ---------- Stats ----------

// Stats is the dashboard overview.
type Stats struct {
	Students        int `json:"students"`
	Schools         int `json:"schools"`
	Admins          int `json:"admins"`
	TodayAttendance int `json:"todayAttendance"`
}

// Stats counts the collections and today's attendance records.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	ds, err := store.LoadDataset(ctx, s.store)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{
		Students: len(ds.Students),
		Schools:  len(ds.Schools),
		Admins:   len(ds.Users),
	}
	today := s.today()
	for _, rec := range ds.Attendance {
		if rec.CheckInDate == today {
			st.TodayAttendance++
		}
	}
	return st, nil
}
