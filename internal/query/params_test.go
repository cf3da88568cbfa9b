package query

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	p, err := Parse(testCourses, url.Values{})
	require.NoError(t, err)

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, DefaultPageSize, p.PageSize)
	assert.Empty(t, p.Filters)
	assert.Empty(t, p.Search)
	assert.Empty(t, p.Ordering)
	assert.Equal(t, 0, p.Offset())
}

func TestParseFiltersSearchAndOrdering(t *testing.T) {
	values := url.Values{
		"name":     {"Algebra"},
		"id":       {"4"},
		"search":   {" alg "},
		"ordering": {"-id"},
		"page":     {"2"},
	}

	p, err := Parse(testCourses, values)
	require.NoError(t, err)

	require.Len(t, p.Filters, 2)
	assert.Equal(t, "id", p.Filters[0].Field.Name)
	assert.Equal(t, 4, p.Filters[0].Value)
	assert.Equal(t, "name", p.Filters[1].Field.Name)
	assert.Equal(t, "Algebra", p.Filters[1].Value)
	assert.Equal(t, "alg", p.Search)
	require.Len(t, p.Ordering, 1)
	assert.True(t, p.Ordering[0].Desc)
	assert.Equal(t, 2, p.Page)
	assert.Equal(t, 3, p.Offset())
}

func TestParseIgnoresEmptyFilterValues(t *testing.T) {
	p, err := Parse(testCourses, url.Values{"author": {""}})
	require.NoError(t, err)
	assert.Empty(t, p.Filters)
}

func TestParseRejectsInvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		values url.Values
		param  string
	}{
		{"unknown field", url.Values{"title": {"x"}}, "title"},
		{"non-integer id", url.Values{"id": {"abc"}}, "id"},
		{"non-integer set member", url.Values{"course": {"one"}}, "course"},
		{"unsortable field", url.Values{"ordering": {"name"}}, "ordering"},
		{"zero page", url.Values{"page": {"0"}}, "page"},
		{"word page", url.Values{"page": {"last"}}, "page"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := testCourses
			if tt.param == "course" {
				schema = testEnrollments
			}
			_, err := Parse(schema, tt.values)
			var perr *ParamError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.param, perr.Param)
		})
	}
}

func TestParsePageSize(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", DefaultPageSize},
		{"10", 10},
		{"1000", 1000},
		{"5000", MaxPageSize},
		{"0", DefaultPageSize},
		{"-4", DefaultPageSize},
		{"many", DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p, err := Parse(testCourses, url.Values{"page_size": {tt.raw}})
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.PageSize)
		})
	}
}

func TestParseHugePageSelectsEmptyWindow(t *testing.T) {
	p, err := Parse(testCourses, url.Values{"page": {"4611686018427387905"}})
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, p.Offset())

	_, args := testCourses.Compile(p).SelectSQL("id, name")
	assert.Equal(t, []any{DefaultPageSize, math.MaxInt}, args)

	p.PageSize = MaxPageSize
	p.Page = math.MaxInt
	assert.Equal(t, math.MaxInt, p.Offset())
}
