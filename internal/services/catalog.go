package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coursehub/apiserver/internal/access"
	"github.com/coursehub/apiserver/internal/query"
	"github.com/go-playground/validator/v10"
)

// Record is a catalog entity with a server-assigned integer id.
type Record[T any] interface {
	PrimaryKey() int
	WithPrimaryKey(id int) T
}

// Repository defines persistence operations for one resource type.
type Repository[T any] interface {
	Schema() query.Schema
	List(ctx context.Context, p query.Params) ([]T, int, error)
	Get(ctx context.Context, id int) (T, error)
	Create(ctx context.Context, record T) (T, error)
	Update(ctx context.Context, record T) (T, error)
	Delete(ctx context.Context, id int) error
}

// Catalog implements list, retrieve, create, replace, partial update and
// delete for one resource type. Every operation consults the access
// policy first; a denial returns before the repository is touched.
type Catalog[T Record[T]] struct {
	resource string
	variant  access.Variant
	repo     Repository[T]
	validate *validator.Validate
	events   *Events
}

func NewCatalog[T Record[T]](
	resource string,
	variant access.Variant,
	repo Repository[T],
	validate *validator.Validate,
	events *Events,
) *Catalog[T] {
	if validate == nil {
		validate = NewValidator()
	}
	return &Catalog[T]{
		resource: resource,
		variant:  variant,
		repo:     repo,
		validate: validate,
		events:   events,
	}
}

// WithVariant returns a catalog over the same repository gated by a
// different policy variant.
func (c *Catalog[T]) WithVariant(v access.Variant) *Catalog[T] {
	clone := *c
	clone.variant = v
	return &clone
}

func (c *Catalog[T]) Resource() string {
	return c.resource
}

func (c *Catalog[T]) Variant() access.Variant {
	return c.variant
}

// Schema returns the declared query fields of the resource.
func (c *Catalog[T]) Schema() query.Schema {
	return c.repo.Schema()
}

// Authorize reports whether ident may perform method on this resource.
func (c *Catalog[T]) Authorize(method string, ident access.Identity) error {
	return access.Check(method, ident, c.variant)
}

func (c *Catalog[T]) List(ctx context.Context, ident access.Identity, p query.Params) (query.Result[T], error) {
	if err := c.Authorize(http.MethodGet, ident); err != nil {
		return query.Result[T]{}, err
	}

	items, total, err := c.repo.List(ctx, p)
	if err != nil {
		return query.Result[T]{}, fmt.Errorf("list %s: %w", c.resource, err)
	}
	return query.Result[T]{Items: items, Count: total}, nil
}

func (c *Catalog[T]) Retrieve(ctx context.Context, ident access.Identity, id int) (T, error) {
	var zero T
	if err := c.Authorize(http.MethodGet, ident); err != nil {
		return zero, err
	}
	return c.repo.Get(ctx, id)
}

func (c *Catalog[T]) Create(ctx context.Context, ident access.Identity, record T) (T, error) {
	var zero T
	if err := c.Authorize(http.MethodPost, ident); err != nil {
		return zero, err
	}

	record = record.WithPrimaryKey(0)
	if err := validateRecord(c.validate, record); err != nil {
		return zero, err
	}

	created, err := c.repo.Create(ctx, record)
	if err != nil {
		return zero, asValidationError(err)
	}
	c.events.Emit(ctx, c.resource, ActionCreated, created.PrimaryKey())
	return created, nil
}

func (c *Catalog[T]) Replace(ctx context.Context, ident access.Identity, id int, record T) (T, error) {
	var zero T
	if err := c.Authorize(http.MethodPut, ident); err != nil {
		return zero, err
	}
	if _, err := c.repo.Get(ctx, id); err != nil {
		return zero, err
	}
	return c.save(ctx, record.WithPrimaryKey(id))
}

// PartialUpdate loads the stored record, lets apply overwrite the fields
// present in the request, then validates and saves the merged record.
func (c *Catalog[T]) PartialUpdate(ctx context.Context, ident access.Identity, id int, apply func(*T) error) (T, error) {
	var zero T
	if err := c.Authorize(http.MethodPatch, ident); err != nil {
		return zero, err
	}

	current, err := c.repo.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if err := apply(&current); err != nil {
		return zero, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return c.save(ctx, current.WithPrimaryKey(id))
}

func (c *Catalog[T]) Delete(ctx context.Context, ident access.Identity, id int) error {
	if err := c.Authorize(http.MethodDelete, ident); err != nil {
		return err
	}
	if err := c.repo.Delete(ctx, id); err != nil {
		return err
	}
	c.events.Emit(ctx, c.resource, ActionDeleted, id)
	return nil
}

func (c *Catalog[T]) save(ctx context.Context, record T) (T, error) {
	var zero T
	if err := validateRecord(c.validate, record); err != nil {
		return zero, err
	}

	updated, err := c.repo.Update(ctx, record)
	if err != nil {
		return zero, asValidationError(err)
	}
	c.events.Emit(ctx, c.resource, ActionUpdated, updated.PrimaryKey())
	return updated, nil
}
