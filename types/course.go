package types

// Course represents a course offered in the catalog.
type Course struct {
	// ID is the unique identifier of the course.
	ID int `json:"id" db:"id"`

	// Name is the unique title of the course, at most 30 characters.
	Name string `json:"name" db:"name" validate:"required,max=30"`

	// Description explains who the course is for. It may be null.
	Description *string `json:"description" db:"description" validate:"omitempty,max=150"`

	// Author is the full name of the course author.
	Author string `json:"author" db:"author" validate:"required,max=40"`
}

func (c Course) PrimaryKey() int { return c.ID }

func (c Course) WithPrimaryKey(id int) Course {
	c.ID = id
	return c
}
