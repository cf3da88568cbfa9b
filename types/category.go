package types

// Category groups courses under a unique name.
type Category struct {
	// ID is the unique identifier of the category.
	ID int `json:"id" db:"id"`

	// Name is the unique category name, at most 30 characters.
	Name string `json:"name" db:"name" validate:"required,max=30"`

	// Course lists the ids of the courses in this category.
	Course []int `json:"course" db:"-" validate:"required,min=1,dive,gt=0"`
}

func (c Category) PrimaryKey() int { return c.ID }

func (c Category) WithPrimaryKey(id int) Category {
	c.ID = id
	return c
}
