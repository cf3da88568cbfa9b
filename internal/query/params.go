package query

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const (
	DefaultPageSize = 3
	MaxPageSize     = 1000
)

// Reserved query parameter names.
const (
	ParamSearch   = "search"
	ParamOrdering = "ordering"
	ParamPage     = "page"
	ParamPageSize = "page_size"
)

// ParamError reports an invalid query parameter.
type ParamError struct {
	Param  string
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid query parameter %q: %s", e.Param, e.Reason)
}

// Filter is an exact-match predicate on a declared field.
type Filter struct {
	Field Field
	Value any
}

// Order sorts by a sortable field.
type Order struct {
	Field Field
	Desc  bool
}

// Params is a validated collection request.
type Params struct {
	Filters  []Filter
	Search   string
	Ordering []Order
	Page     int
	PageSize int
}

// DefaultParams returns the first page with the default page size.
func DefaultParams() Params {
	return Params{Page: 1, PageSize: DefaultPageSize}
}

// Offset is the number of records before the requested window. It
// saturates at math.MaxInt so a huge page number selects an empty window.
func (p Params) Offset() int {
	if p.Page < 1 || p.PageSize < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// Parse validates URL query values against the schema. Keys that are
// neither reserved nor declared filterable fields are rejected.
func Parse(s Schema, values url.Values) (Params, error) {
	p := DefaultParams()

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		raw := strings.TrimSpace(values.Get(key))
		switch key {
		case ParamSearch:
			p.Search = raw
		case ParamOrdering:
			ordering, err := parseOrdering(s, raw)
			if err != nil {
				return Params{}, err
			}
			p.Ordering = ordering
		case ParamPage:
			if raw == "" {
				continue
			}
			page, err := strconv.Atoi(raw)
			if err != nil || page < 1 {
				return Params{}, &ParamError{Param: key, Reason: "must be a positive integer"}
			}
			p.Page = page
		case ParamPageSize:
			p.PageSize = parsePageSize(raw)
		default:
			field, ok := s.Field(key)
			if !ok || !field.Filterable {
				return Params{}, &ParamError{Param: key, Reason: "unknown filter field"}
			}
			if raw == "" {
				continue
			}
			value, err := filterValue(field, raw)
			if err != nil {
				return Params{}, &ParamError{Param: key, Reason: err.Error()}
			}
			p.Filters = append(p.Filters, Filter{Field: field, Value: value})
		}
	}

	return p, nil
}

func parseOrdering(s Schema, raw string) ([]Order, error) {
	if raw == "" {
		return nil, nil
	}
	var ordering []Order
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		field, ok := s.Field(name)
		if !ok || !field.Sortable {
			return nil, &ParamError{Param: ParamOrdering, Reason: fmt.Sprintf("cannot order by %q", name)}
		}
		ordering = append(ordering, Order{Field: field, Desc: desc})
	}
	return ordering, nil
}

// parsePageSize falls back to the default for missing or invalid values
// and clamps oversized requests to MaxPageSize.
func parsePageSize(raw string) int {
	if raw == "" {
		return DefaultPageSize
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size < 1 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

func filterValue(f Field, raw string) (any, error) {
	switch f.Kind {
	case Int, IntSet:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		return v, nil
	default:
		return raw, nil
	}
}
