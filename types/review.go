package types

const (
	MinReviewRate = 0
	MaxReviewRate = 10
)

// Review is a rated comment left by an account on a course.
type Review struct {
	// ID is the unique identifier of the review.
	ID int `json:"id" db:"id"`

	// Course is the id of the reviewed course.
	Course int `json:"course" db:"course_id" validate:"required,gt=0"`

	// User is the id of the account that wrote the review.
	User int `json:"user" db:"user_id" validate:"required,gt=0"`

	// Text is the optional review body.
	Text *string `json:"text" db:"text"`

	// Rate is the score given to the course, from 0 to 10 inclusive.
	// The database enforces the same bound with a check constraint.
	Rate int `json:"rate" db:"rate" validate:"min=0,max=10"`
}

func (r Review) PrimaryKey() int { return r.ID }

func (r Review) WithPrimaryKey(id int) Review {
	r.ID = id
	return r
}
