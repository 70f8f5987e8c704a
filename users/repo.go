package users

import (
	"errors"
	"time"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepo interface {
	Upsert(user *User) error
	GetByEmail(email string) (*User, error)
	GetByID(ID string) (*User, error)
	SetDisabled(email string, disabled bool) error
	SetLastSignIn(email string, at time.Time) error
}
