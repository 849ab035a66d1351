package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"manabitrack/internal/model"
	"manabitrack/internal/store"
)

// Login failure classifications. ErrPasswordNotSet marks an admin who has
// not completed first login and must set a password.
var (
	ErrBadCredentials = errors.New("auth: invalid login id or password")
	ErrPasswordNotSet = errors.New("auth: password not set")
)

// Identity is the resolved console identity after a successful login.
type Identity struct {
	Subject  string // user or school id
	Name     string
	Role     string
	SchoolID string // set for school consoles only
}

// Resolve checks a login against admin users first (by email), then
// school consoles (by login id), the same order the login form used.
func Resolve(ctx context.Context, s store.Store, loginID, password string) (Identity, error) {
	ds, err := store.LoadDataset(ctx, s)
	if err != nil {
		return Identity{}, err
	}

	for _, user := range ds.Users {
		if user.Email != loginID {
			continue
		}
		if user.PasswordHash == "" {
			return Identity{}, ErrPasswordNotSet
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return Identity{}, ErrBadCredentials
		}
		return Identity{Subject: user.ID, Name: user.Name, Role: user.Role}, nil
	}

	for _, school := range ds.Schools {
		if school.LoginID != loginID {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(school.PasswordHash), []byte(password)) != nil {
			return Identity{}, ErrBadCredentials
		}
		return Identity{Subject: school.ID, Name: school.Name, Role: model.RoleSchool, SchoolID: school.ID}, nil
	}

	return Identity{}, ErrBadCredentials
}

// CompleteFirstLogin sets the supplied password for an admin who has none
// yet and resolves their identity. The first password entered at the login
// form becomes the account password.
func CompleteFirstLogin(ctx context.Context, s store.Store, email, password string) (Identity, error) {
	if len(password) < 8 {
		return Identity{}, ErrPasswordNotSet
	}
	ds, err := store.LoadDataset(ctx, s)
	if err != nil {
		return Identity{}, err
	}
	for i := range ds.Users {
		user := &ds.Users[i]
		if user.Email != email || user.PasswordHash != "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return Identity{}, err
		}
		user.PasswordHash = string(hash)
		if err := store.SaveCollection(ctx, s, model.CollectionUsers, ds.Users); err != nil {
			return Identity{}, err
		}
		return Identity{Subject: user.ID, Name: user.Name, Role: user.Role}, nil
	}
	return Identity{}, ErrBadCredentials
}

// SetPassword stores a new bcrypt hash for an admin user, used by the
// authenticated password-change flow.
func SetPassword(ctx context.Context, s store.Store, userID, password string) error {
	if len(password) < 8 {
		return errors.New("auth: password must be at least 8 characters")
	}
	ds, err := store.LoadDataset(ctx, s)
	if err != nil {
		return err
	}
	for i := range ds.Users {
		if ds.Users[i].ID != userID {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		ds.Users[i].PasswordHash = string(hash)
		return store.SaveCollection(ctx, s, model.CollectionUsers, ds.Users)
	}
	return errors.New("auth: unknown user")
}
