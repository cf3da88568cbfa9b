package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/types"
)

const courseColumns = "id, name, description, author"

// CourseRepository handles persistence for courses.
type CourseRepository struct {
	db *sql.DB
}

func NewCourseRepository(db *sql.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Schema() query.Schema {
	return CourseSchema
}

func (r *CourseRepository) List(ctx context.Context, p query.Params) ([]types.Course, int, error) {
	return listWindow(ctx, r.db, CourseSchema, p, courseColumns, scanCourse)
}

func (r *CourseRepository) Get(ctx context.Context, id int) (types.Course, error) {
	const query = `SELECT ` + courseColumns + ` FROM courses WHERE id = $1`
	course, err := scanCourse(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Course{}, ErrNotFound
		}
		return types.Course{}, err
	}
	return course, nil
}

func (r *CourseRepository) Create(ctx context.Context, course types.Course) (types.Course, error) {
	const query = `
		INSERT INTO courses (name, description, author)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, course.Name, course.Description, course.Author).Scan(&course.ID); err != nil {
		return types.Course{}, translateError(err)
	}
	return course, nil
}

func (r *CourseRepository) Update(ctx context.Context, course types.Course) (types.Course, error) {
	const query = `
		UPDATE courses
		SET name = $1,
			description = $2,
			author = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, course.Name, course.Description, course.Author, course.ID)
	if err != nil {
		return types.Course{}, translateError(err)
	}
	if err := checkAffected(result); err != nil {
		return types.Course{}, err
	}
	return course, nil
}

// Delete removes the course. Its reviews and join-set memberships are
// removed by ON DELETE CASCADE.
func (r *CourseRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanCourse(s scanner) (types.Course, error) {
	var course types.Course
	err := s.Scan(&course.ID, &course.Name, &course.Description, &course.Author)
	return course, err
}
