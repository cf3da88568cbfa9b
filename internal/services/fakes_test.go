package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/coursehub/apiserver/internal/mq"
	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/internal/storage"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
)

type memoryRepo[T Record[T]] struct {
	mu      sync.Mutex
	schema  query.Schema
	records map[int]T
	nextID  int
	calls   int
	failOn  error
}

func newMemoryRepo[T Record[T]](schema query.Schema, seed ...T) *memoryRepo[T] {
	repo := &memoryRepo[T]{schema: schema, records: map[int]T{}, nextID: 1}
	for _, rec := range seed {
		repo.records[rec.PrimaryKey()] = rec
		if rec.PrimaryKey() >= repo.nextID {
			repo.nextID = rec.PrimaryKey() + 1
		}
	}
	return repo
}

func (r *memoryRepo[T]) Schema() query.Schema { return r.schema }

func (r *memoryRepo[T]) List(_ context.Context, p query.Params) ([]T, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	ids := make([]int, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	items := []T{}
	for i := p.Offset(); i < len(ids) && len(items) < p.PageSize; i++ {
		items = append(items, r.records[ids[i]])
	}
	return items, len(ids), nil
}

func (r *memoryRepo[T]) Get(_ context.Context, id int) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	rec, ok := r.records[id]
	if !ok {
		var zero T
		return zero, store.ErrNotFound
	}
	return rec, nil
}

func (r *memoryRepo[T]) Create(_ context.Context, rec T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	if r.failOn != nil {
		var zero T
		return zero, r.failOn
	}
	rec = rec.WithPrimaryKey(r.nextID)
	r.nextID++
	r.records[rec.PrimaryKey()] = rec
	return rec, nil
}

func (r *memoryRepo[T]) Update(_ context.Context, rec T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	if r.failOn != nil {
		var zero T
		return zero, r.failOn
	}
	if _, ok := r.records[rec.PrimaryKey()]; !ok {
		var zero T
		return zero, store.ErrNotFound
	}
	r.records[rec.PrimaryKey()] = rec
	return rec, nil
}

func (r *memoryRepo[T]) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++

	if _, ok := r.records[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.records, id)
	return nil
}

type memoryAccounts struct {
	*memoryRepo[types.Account]
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{newMemoryRepo[types.Account](store.AccountSchema)}
}

func (r *memoryAccounts) GetByID(ctx context.Context, id int) (types.Account, error) {
	return r.Get(ctx, id)
}

func (r *memoryAccounts) GetByUsername(_ context.Context, username string) (types.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.records {
		if account.Username == username {
			return account, nil
		}
	}
	return types.Account{}, store.ErrNotFound
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []mq.Event
	err    error
}

func (p *recordingPublisher) PublishEvent(_ context.Context, ev mq.Event) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, ev)
	return "msg-1", nil
}

type storedRecording struct {
	upload storage.Upload
	data   []byte
}

type memoryRecordings struct {
	baseURL string
	objects map[string]storedRecording
}

func newMemoryRecordings(baseURL string) *memoryRecordings {
	return &memoryRecordings{baseURL: baseURL, objects: map[string]storedRecording{}}
}

func (s *memoryRecordings) Save(_ context.Context, u storage.Upload) (storage.Object, error) {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, u.Body); err != nil {
		return storage.Object{}, err
	}
	key := fmt.Sprintf("lessons/%d/%s", u.LessonID, u.Filename)
	s.objects[key] = storedRecording{upload: u, data: buf.Bytes()}
	return storage.Object{Key: key, URL: s.baseURL + "/" + key, ContentType: u.ContentType}, nil
}

func (s *memoryRecordings) Discard(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}
