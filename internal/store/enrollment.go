package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coursehub/apiserver/internal/db"
	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/types"
)

const enrollmentColumns = "id, user_id"

// EnrollmentRepository handles persistence for enrollments and their
// course sets. The enrollment row and its set are written in one
// transaction.
type EnrollmentRepository struct {
	db *sql.DB
}

func NewEnrollmentRepository(db *sql.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

func (r *EnrollmentRepository) Schema() query.Schema {
	return EnrollmentSchema
}

func (r *EnrollmentRepository) List(ctx context.Context, p query.Params) ([]types.Enrollment, int, error) {
	enrollments, total, err := listWindow(ctx, r.db, EnrollmentSchema, p, enrollmentColumns, scanEnrollment)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int, len(enrollments))
	for i, e := range enrollments {
		ids[i] = e.ID
	}
	sets, err := enrollmentCourses.loadMany(ctx, r.db, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range enrollments {
		enrollments[i].Course = orEmpty(sets[enrollments[i].ID])
	}
	return enrollments, total, nil
}

func (r *EnrollmentRepository) Get(ctx context.Context, id int) (types.Enrollment, error) {
	const query = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE id = $1`
	enrollment, err := scanEnrollment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Enrollment{}, ErrNotFound
		}
		return types.Enrollment{}, err
	}

	enrollment.Course, err = enrollmentCourses.load(ctx, r.db, id)
	if err != nil {
		return types.Enrollment{}, err
	}
	return enrollment, nil
}

func (r *EnrollmentRepository) Create(ctx context.Context, enrollment types.Enrollment) (types.Enrollment, error) {
	enrollment.Course = normalizeIDs(enrollment.Course)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		const query = `INSERT INTO enrollments (user_id) VALUES ($1) RETURNING id`
		if err := tx.QueryRowContext(ctx, query, enrollment.User).Scan(&enrollment.ID); err != nil {
			return err
		}
		return enrollmentCourses.replace(ctx, tx, enrollment.ID, enrollment.Course)
	})
	if err != nil {
		return types.Enrollment{}, translateError(err)
	}
	return enrollment, nil
}

func (r *EnrollmentRepository) Update(ctx context.Context, enrollment types.Enrollment) (types.Enrollment, error) {
	enrollment.Course = normalizeIDs(enrollment.Course)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE enrollments SET user_id = $1 WHERE id = $2`, enrollment.User, enrollment.ID)
		if err != nil {
			return err
		}
		if err := checkAffected(result); err != nil {
			return err
		}
		return enrollmentCourses.replace(ctx, tx, enrollment.ID, enrollment.Course)
	})
	if err != nil {
		return types.Enrollment{}, translateError(err)
	}
	return enrollment, nil
}

func (r *EnrollmentRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanEnrollment(s scanner) (types.Enrollment, error) {
	var enrollment types.Enrollment
	err := s.Scan(&enrollment.ID, &enrollment.User)
	return enrollment, err
}

func orEmpty(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
