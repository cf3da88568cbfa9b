package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/types"
)

const lessonColumns = "id, name, text, lesson_recording_url"

// LessonRepository handles persistence for lessons.
type LessonRepository struct {
	db *sql.DB
}

func NewLessonRepository(db *sql.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

func (r *LessonRepository) Schema() query.Schema {
	return LessonSchema
}

func (r *LessonRepository) List(ctx context.Context, p query.Params) ([]types.Lesson, int, error) {
	return listWindow(ctx, r.db, LessonSchema, p, lessonColumns, scanLesson)
}

func (r *LessonRepository) Get(ctx context.Context, id int) (types.Lesson, error) {
	const query = `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`
	lesson, err := scanLesson(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Lesson{}, ErrNotFound
		}
		return types.Lesson{}, err
	}
	return lesson, nil
}

func (r *LessonRepository) Create(ctx context.Context, lesson types.Lesson) (types.Lesson, error) {
	const query = `
		INSERT INTO lessons (name, text, lesson_recording_url)
		VALUES ($1, $2, $3)
		RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, lesson.Name, lesson.Text, lesson.LessonRecordingURL).Scan(&lesson.ID); err != nil {
		return types.Lesson{}, translateError(err)
	}
	return lesson, nil
}

func (r *LessonRepository) Update(ctx context.Context, lesson types.Lesson) (types.Lesson, error) {
	const query = `
		UPDATE lessons
		SET name = $1,
			text = $2,
			lesson_recording_url = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, lesson.Name, lesson.Text, lesson.LessonRecordingURL, lesson.ID)
	if err != nil {
		return types.Lesson{}, translateError(err)
	}
	if err := checkAffected(result); err != nil {
		return types.Lesson{}, err
	}
	return lesson, nil
}

func (r *LessonRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func scanLesson(s scanner) (types.Lesson, error) {
	var lesson types.Lesson
	err := s.Scan(&lesson.ID, &lesson.Name, &lesson.Text, &lesson.LessonRecordingURL)
	return lesson, err
}
