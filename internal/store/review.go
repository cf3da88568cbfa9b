package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/types"
)

const reviewColumns = "id, course_id, user_id, text, rate"

// ReviewRepository handles persistence for reviews.
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Schema() query.Schema {
	return ReviewSchema
}

func (r *ReviewRepository) List(ctx context.Context, p query.Params) ([]types.Review, int, error) {
	return listWindow(ctx, r.db, ReviewSchema, p, reviewColumns, scanReview)
}

func (r *ReviewRepository) Get(ctx context.Context, id int) (types.Review, error) {
	const query = `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1`
	review, err := scanReview(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Review{}, ErrNotFound
		}
		return types.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	const query = `
		INSERT INTO reviews (course_id, user_id, text, rate)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, review.Course, review.User, review.Text, review.Rate).Scan(&review.ID); err != nil {
		return types.Review{}, translateError(err)
	}
	return review, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review types.Review) (types.Review, error) {
	const query = `
		UPDATE reviews
		SET course_id = $1,
			user_id = $2,
			text = $3,
			rate = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query, review.Course, review.User, review.Text, review.Rate, review.ID)
	if err != nil {
		return types.Review{}, translateError(err)
	}
	if err := checkAffected(result); err != nil {
		return types.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanReview(s scanner) (types.Review, error) {
	var review types.Review
	err := s.Scan(&review.ID, &review.Course, &review.User, &review.Text, &review.Rate)
	return review, err
}
