package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"manabitrack/internal/model"
	"manabitrack/internal/store"
)

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func loginStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewMemory()
	ds := &model.Dataset{
		Students: []model.Student{},
		Schools: []model.School{
			{ID: "SCH-A", Name: "Central", LoginID: "central", PasswordHash: hash(t, "school-pass-1")},
		},
		Users: []model.AdminUser{
			{ID: "USR001", Name: "Root", Email: model.SeedAdminEmail, Role: model.RoleSuperAdmin, PasswordHash: hash(t, "admin123")},
			{ID: "USR002", Name: "Fresh", Email: "fresh@system.com", Role: model.RoleAdmin},
		},
		Attendance: []model.AttendanceRecord{},
	}
	if err := store.ReplaceDataset(context.Background(), s, ds); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestResolveAdmin(t *testing.T) {
	id, err := Resolve(context.Background(), loginStore(t), model.SeedAdminEmail, "admin123")
	if err != nil {
		t.Fatal(err)
	}
	if id.Role != model.RoleSuperAdmin || id.Subject != "USR001" || id.SchoolID != "" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestResolveSchool(t *testing.T) {
	id, err := Resolve(context.Background(), loginStore(t), "central", "school-pass-1")
	if err != nil {
		t.Fatal(err)
	}
	if id.Role != model.RoleSchool || id.SchoolID != "SCH-A" {
		t.Fatalf("identity = %+v", id)
	}
}

func TestResolveFailures(t *testing.T) {
	s := loginStore(t)
	ctx := context.Background()

	if _, err := Resolve(ctx, s, model.SeedAdminEmail, "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password: %v", err)
	}
	if _, err := Resolve(ctx, s, "nobody@x", "admin123"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown login: %v", err)
	}
	if _, err := Resolve(ctx, s, "fresh@system.com", "anything"); !errors.Is(err, ErrPasswordNotSet) {
		t.Fatalf("password-not-set: %v", err)
	}
}

func TestCompleteFirstLogin(t *testing.T) {
	s := loginStore(t)
	ctx := context.Background()

	if _, err := CompleteFirstLogin(ctx, s, "fresh@system.com", "short"); !errors.Is(err, ErrPasswordNotSet) {
		t.Fatalf("weak password: %v", err)
	}
	if _, err := CompleteFirstLogin(ctx, s, model.SeedAdminEmail, "irrelevant-pw"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("already has password: %v", err)
	}

	id, err := CompleteFirstLogin(ctx, s, "fresh@system.com", "chosen-password")
	if err != nil || id.Subject != "USR002" {
		t.Fatalf("first login: %+v %v", id, err)
	}
	if _, err := Resolve(ctx, s, "fresh@system.com", "chosen-password"); err != nil {
		t.Fatalf("login after first login: %v", err)
	}
}

func TestSetPassword(t *testing.T) {
	s := loginStore(t)
	ctx := context.Background()

	if err := SetPassword(ctx, s, "USR002", "short"); err == nil {
		t.Fatal("short password accepted")
	}
	if err := SetPassword(ctx, s, "USR002", "long-enough-pass"); err != nil {
		t.Fatal(err)
	}
	id, err := Resolve(ctx, s, "fresh@system.com", "long-enough-pass")
	if err != nil || id.Subject != "USR002" {
		t.Fatalf("login after set: %+v %v", id, err)
	}
}

func TestIssueAndParse(t *testing.T) {
	pair, err := Issue("SCH-A", model.RoleSchool, "SCH-A", "manabitrack", "test-key", time.Hour, 2*time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := Parse(pair.AccessToken, "test-key", "manabitrack")
	if err != nil {
		t.Fatal(err)
	}
	if claims.Role != model.RoleSchool || claims.SchoolID != "SCH-A" {
		t.Fatalf("claims = %+v", claims)
	}
	if _, err := Parse(pair.AccessToken, "other-key", "manabitrack"); err == nil {
		t.Fatal("token verified with wrong key")
	}
	if _, err := Parse(pair.AccessToken, "test-key", "other-issuer"); err == nil {
		t.Fatal("token verified with wrong issuer")
	}
}
