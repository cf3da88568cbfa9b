package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ConstraintError reports a write rejected by a database constraint.
// Field names the wire field the constraint guards.
type ConstraintError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

const nonFieldErrors = "non_field_errors"

var constraintFields = map[string]string{
	"accounts_username_key":             "username",
	"user_profiles_user_id_key":         "user",
	"user_profiles_user_id_fkey":        "user",
	"courses_name_key":                  "name",
	"lessons_name_key":                  "name",
	"enrollments_user_id_fkey":          "user",
	"enrollment_courses_course_id_fkey": "course",
	"reviews_rate_check":                "rate",
	"reviews_course_id_fkey":            "course",
	"reviews_user_id_fkey":              "user",
	"categories_name_key":               "name",
	"category_courses_course_id_fkey":   "course",
}

// translateError maps unique, foreign key and check violations to
// ConstraintError and returns any other error unchanged.
func translateError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	var reason string
	switch pqErr.Code.Name() {
	case "unique_violation":
		reason = "already exists"
	case "foreign_key_violation":
		reason = "references a record that does not exist"
	case "check_violation":
		reason = "is out of the allowed range"
	default:
		return err
	}

	field, ok := constraintFields[pqErr.Constraint]
	if !ok {
		field = nonFieldErrors
	}
	return &ConstraintError{Field: field, Reason: reason, Err: err}
}
