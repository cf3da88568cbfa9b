package query

import (
	"fmt"
	"strings"
)

// Statement is a compiled collection query. Placeholders use the
// PostgreSQL $n syntax.
type Statement struct {
	table  string
	where  []string
	args   []any
	order  []string
	limit  int
	offset int
}

// Compile turns validated params into SQL fragments: filters are ANDed,
// the search term is ORed across searchable fields, and the ordering always
// ends with the primary key so windows are stable.
func (s Schema) Compile(p Params) Statement {
	st := Statement{table: s.Table, limit: p.PageSize, offset: p.Offset()}

	for _, f := range p.Filters {
		st.args = append(st.args, f.Value)
		st.where = append(st.where, s.matchExact(f.Field, len(st.args)))
	}

	if p.Search != "" {
		st.args = append(st.args, "%"+escapeLike(p.Search)+"%")
		n := len(st.args)
		var terms []string
		for _, f := range s.Fields {
			if f.Searchable {
				terms = append(terms, s.matchContains(f, n))
			}
		}
		if len(terms) > 0 {
			st.where = append(st.where, "("+strings.Join(terms, " OR ")+")")
		}
	}

	pkOrdered := false
	for _, o := range p.Ordering {
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		st.order = append(st.order, fmt.Sprintf("%s.%s %s", s.Table, o.Field.Column, dir))
		if o.Field.Name == "id" {
			pkOrdered = true
		}
	}
	if !pkOrdered {
		st.order = append(st.order, fmt.Sprintf("%s.%s ASC", s.Table, s.primaryKey().Column))
	}

	return st
}

// SelectSQL returns the windowed query selecting columns from the table.
func (st Statement) SelectSQL(columns string) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", columns, st.table)
	st.writeWhere(&b)
	fmt.Fprintf(&b, " ORDER BY %s", strings.Join(st.order, ", "))

	args := append(append([]any{}, st.args...), st.limit, st.offset)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

// CountSQL returns the query counting every matching record.
func (st Statement) CountSQL() (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT COUNT(1) FROM %s", st.table)
	st.writeWhere(&b)
	return b.String(), append([]any{}, st.args...)
}

func (st Statement) writeWhere(b *strings.Builder) {
	if len(st.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(st.where, " AND "))
	}
}

func (s Schema) matchExact(f Field, n int) string {
	if f.Kind == IntSet {
		return fmt.Sprintf("EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.id AND %s.%s = $%d)",
			f.JoinTable, f.JoinTable, f.JoinOwner, s.Table, f.JoinTable, f.JoinRef, n)
	}
	return fmt.Sprintf("%s.%s = $%d", s.Table, f.Column, n)
}

func (s Schema) matchContains(f Field, n int) string {
	if f.Kind == IntSet {
		return fmt.Sprintf(`EXISTS (SELECT 1 FROM %s WHERE %s.%s = %s.id AND CAST(%s.%s AS TEXT) ILIKE $%d ESCAPE '\')`,
			f.JoinTable, f.JoinTable, f.JoinOwner, s.Table, f.JoinTable, f.JoinRef, n)
	}
	return fmt.Sprintf(`CAST(%s.%s AS TEXT) ILIKE $%d ESCAPE '\'`, s.Table, f.Column, n)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}
