package dataset

import (
	"context"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"manabitrack/internal/model"
	"manabitrack/internal/store"
)

// DefaultAdminPassword is the seed super admin's first password; it must
// be changed after first login.
const DefaultAdminPassword = "admin123"

// EnsureInitialized seeds a fresh store with empty collections and the
// default super admin. Stores that went through setup before (or were
// populated by a snapshot import) are left alone.
func EnsureInitialized(ctx context.Context, s store.Store) error {
	initialized, err := store.Initialized(ctx, s)
	if err != nil {
		return err
	}
	if initialized {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultAdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	ds := &model.Dataset{
		Students: []model.Student{},
		Schools:  []model.School{},
		Users: []model.AdminUser{{
			ID:           "USR001",
			Name:         "System Administrator",
			Email:        model.SeedAdminEmail,
			Role:         model.RoleSuperAdmin,
			PasswordHash: string(hash),
			CreatedAt:    time.Now().UTC().Format(time.RFC3339),
		}},
		Attendance: []model.AttendanceRecord{},
	}
	if err := store.ReplaceDataset(ctx, s, ds); err != nil {
		return err
	}
	if err := store.SetInitialized(ctx, s); err != nil {
		return err
	}
	log.Printf("store initialized with seed admin %s", model.SeedAdminEmail)
	return nil
}
