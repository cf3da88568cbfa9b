package types

// Enrollment records that an account is signed up for a set of courses.
type Enrollment struct {
	// ID is the unique identifier of the enrollment.
	ID int `json:"id" db:"id"`

	// User is the id of the enrolled account.
	User int `json:"user" db:"user_id" validate:"required,gt=0"`

	// Course lists the ids of the courses the account is enrolled in.
	// The set is written together with the enrollment row.
	Course []int `json:"course" db:"-" validate:"required,min=1,dive,gt=0"`
}

func (e Enrollment) PrimaryKey() int { return e.ID }

func (e Enrollment) WithPrimaryKey(id int) Enrollment {
	e.ID = id
	return e
}
