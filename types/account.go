package types

import "time"

// Account represents a login identity in the system.
// It owns a user profile, enrollments, and reviews; deleting an account
// removes all of them.
type Account struct {
	// ID is the unique identifier of the account.
	ID int `json:"id" db:"id"`

	// Username is the unique login handle.
	Username string `json:"username" db:"username" validate:"required,max=150"`

	// PasswordHash stores the bcrypt hash of the account password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// IsSuperuser grants administrator access to every resource.
	IsSuperuser bool `json:"is_superuser" db:"is_superuser"`

	// DateJoined is the timestamp when the account was created.
	DateJoined time.Time `json:"date_joined" db:"date_joined"`
}

func (a Account) PrimaryKey() int { return a.ID }

func (a Account) WithPrimaryKey(id int) Account {
	a.ID = id
	return a
}
