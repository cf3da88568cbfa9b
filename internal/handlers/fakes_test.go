package handlers

import (
	"context"
	"sort"
	"sync"

	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
)

type memoryRepo[T services.Record[T]] struct {
	mu      sync.Mutex
	schema  query.Schema
	records map[int]T
	nextID  int
}

func newMemoryRepo[T services.Record[T]](schema query.Schema, seed ...T) *memoryRepo[T] {
	repo := &memoryRepo[T]{schema: schema, records: map[int]T{}, nextID: 1}
	for _, rec := range seed {
		rec = rec.WithPrimaryKey(repo.nextID)
		repo.records[repo.nextID] = rec
		repo.nextID++
	}
	return repo
}

func (r *memoryRepo[T]) Schema() query.Schema { return r.schema }

func (r *memoryRepo[T]) List(_ context.Context, p query.Params) ([]T, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

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

	rec = rec.WithPrimaryKey(r.nextID)
	r.records[r.nextID] = rec
	r.nextID++
	return rec, nil
}

func (r *memoryRepo[T]) Update(_ context.Context, rec T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

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
