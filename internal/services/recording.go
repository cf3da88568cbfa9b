package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/coursehub/apiserver/internal/access"
	"github.com/coursehub/apiserver/internal/storage"
	"github.com/coursehub/apiserver/types"
)

// ErrStorageUnavailable is returned when no object store is configured.
var ErrStorageUnavailable = errors.New("recording storage is not configured")

// RecordingStore keeps recording files and reports where they are served.
type RecordingStore interface {
	Save(ctx context.Context, upload storage.Upload) (storage.Object, error)
	Discard(ctx context.Context, key string) error
}

// Recording is an uploaded lesson recording.
type Recording struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// LessonRecordings uploads lesson recordings to object storage and points
// the lesson's recording URL at the stored object.
type LessonRecordings struct {
	lessons *Catalog[types.Lesson]
	store   RecordingStore
}

func NewLessonRecordings(lessons *Catalog[types.Lesson], store RecordingStore) *LessonRecordings {
	return &LessonRecordings{lessons: lessons, store: store}
}

// Attach stores rec and updates the lesson to reference it.
func (s *LessonRecordings) Attach(ctx context.Context, ident access.Identity, lessonID int, rec Recording) (types.Lesson, error) {
	if err := s.lessons.Authorize(http.MethodPut, ident); err != nil {
		return types.Lesson{}, err
	}
	if s.store == nil {
		return types.Lesson{}, ErrStorageUnavailable
	}
	if _, err := s.lessons.Retrieve(ctx, ident, lessonID); err != nil {
		return types.Lesson{}, err
	}

	obj, err := s.store.Save(ctx, storage.Upload{
		LessonID:    lessonID,
		Filename:    rec.Filename,
		ContentType: rec.ContentType,
		Size:        rec.Size,
		Body:        rec.Body,
	})
	if err != nil {
		return types.Lesson{}, fmt.Errorf("store recording: %w", err)
	}

	lesson, err := s.lessons.PartialUpdate(ctx, ident, lessonID, func(l *types.Lesson) error {
		l.LessonRecordingURL = obj.URL
		return nil
	})
	if err != nil {
		// The object is unreferenced if the lesson was not updated.
		_ = s.store.Discard(context.WithoutCancel(ctx), obj.Key)
		return types.Lesson{}, err
	}
	return lesson, nil
}
