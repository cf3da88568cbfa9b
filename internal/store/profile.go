package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/types"
)

const profileColumns = "id, name, teacher, user_id"

// UserProfileRepository handles persistence for user profiles.
type UserProfileRepository struct {
	db *sql.DB
}

func NewUserProfileRepository(db *sql.DB) *UserProfileRepository {
	return &UserProfileRepository{db: db}
}

func (r *UserProfileRepository) Schema() query.Schema {
	return UserProfileSchema
}

func (r *UserProfileRepository) List(ctx context.Context, p query.Params) ([]types.UserProfile, int, error) {
	return listWindow(ctx, r.db, UserProfileSchema, p, profileColumns, scanProfile)
}

func (r *UserProfileRepository) Get(ctx context.Context, id int) (types.UserProfile, error) {
	const query = `SELECT ` + profileColumns + ` FROM user_profiles WHERE id = $1`
	profile, err := scanProfile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.UserProfile{}, ErrNotFound
		}
		return types.UserProfile{}, err
	}
	return profile, nil
}

func (r *UserProfileRepository) Create(ctx context.Context, profile types.UserProfile) (types.UserProfile, error) {
	const query = `
		INSERT INTO user_profiles (name, teacher, user_id)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, profile.Name, profile.Teacher, profile.User).Scan(&profile.ID); err != nil {
		return types.UserProfile{}, translateError(err)
	}
	return profile, nil
}

func (r *UserProfileRepository) Update(ctx context.Context, profile types.UserProfile) (types.UserProfile, error) {
	const query = `
		UPDATE user_profiles
		SET name = $1,
			teacher = $2,
			user_id = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, profile.Name, profile.Teacher, profile.User, profile.ID)
	if err != nil {
		return types.UserProfile{}, translateError(err)
	}
	if err := checkAffected(result); err != nil {
		return types.UserProfile{}, err
	}
	return profile, nil
}

func (r *UserProfileRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM user_profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanProfile(s scanner) (types.UserProfile, error) {
	var profile types.UserProfile
	err := s.Scan(&profile.ID, &profile.Name, &profile.Teacher, &profile.User)
	return profile, err
}
