package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coursehub/apiserver/internal/db"
	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/types"
)

const categoryColumns = "id, name"

// CategoryRepository handles persistence for categories and their course sets.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) Schema() query.Schema {
	return CategorySchema
}

func (r *CategoryRepository) List(ctx context.Context, p query.Params) ([]types.Category, int, error) {
	categories, total, err := listWindow(ctx, r.db, CategorySchema, p, categoryColumns, scanCategory)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]int, len(categories))
	for i, c := range categories {
		ids[i] = c.ID
	}
	sets, err := categoryCourses.loadMany(ctx, r.db, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range categories {
		categories[i].Course = orEmpty(sets[categories[i].ID])
	}
	return categories, total, nil
}

func (r *CategoryRepository) Get(ctx context.Context, id int) (types.Category, error) {
	const query = `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	category, err := scanCategory(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}

	category.Course, err = categoryCourses.load(ctx, r.db, id)
	if err != nil {
		return types.Category{}, err
	}
	return category, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	category.Course = normalizeIDs(category.Course)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		const query = `INSERT INTO categories (name) VALUES ($1) RETURNING id`
		if err := tx.QueryRowContext(ctx, query, category.Name).Scan(&category.ID); err != nil {
			return err
		}
		return categoryCourses.replace(ctx, tx, category.ID, category.Course)
	})
	if err != nil {
		return types.Category{}, translateError(err)
	}
	return category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category types.Category) (types.Category, error) {
	category.Course = normalizeIDs(category.Course)

	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE categories SET name = $1 WHERE id = $2`, category.Name, category.ID)
		if err != nil {
			return err
		}
		if err := checkAffected(result); err != nil {
			return err
		}
		return categoryCourses.replace(ctx, tx, category.ID, category.Course)
	})
	if err != nil {
		return types.Category{}, translateError(err)
	}
	return category, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanCategory(s scanner) (types.Category, error) {
	var category types.Category
	err := s.Scan(&category.ID, &category.Name)
	return category, err
}
