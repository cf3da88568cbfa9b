package types

// UserProfile holds the student and teacher names attached to an account.
// Every account has at most one profile.
type UserProfile struct {
	ID int `json:"id" db:"id"`

	// Name is the full name of the student.
	Name string `json:"name" db:"name" validate:"required,max=40"`

	// Teacher is the full name of the student's teacher.
	Teacher string `json:"teacher" db:"teacher" validate:"required,max=40"`

	// User is the id of the owning account.
	User int `json:"user" db:"user_id" validate:"required,gt=0"`
}

func (p UserProfile) PrimaryKey() int { return p.ID }

func (p UserProfile) WithPrimaryKey(id int) UserProfile {
	p.ID = id
	return p
}
