package store

import (
	"context"
	"database/sql"

	"github.com/coursehub/apiserver/internal/query"
)

type scanner interface {
	Scan(dest ...any) error
}

// listWindow counts the records matching p and loads the requested window.
func listWindow[T any](
	ctx context.Context,
	db *sql.DB,
	schema query.Schema,
	p query.Params,
	columns string,
	scan func(scanner) (T, error),
) ([]T, int, error) {
	st := schema.Compile(p)

	countQuery, countArgs := st.CountSQL()
	var total int
	if err := db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery, args := st.SelectSQL(columns)
	rows, err := db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]T, 0, min(p.PageSize, total))
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func checkAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
