package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/lib/pq"
)

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// joinSet is a many-to-many relation stored as (owner, ref) pairs.
type joinSet struct {
	table string
	owner string
	ref   string
}

var (
	enrollmentCourses = joinSet{table: "enrollment_courses", owner: "enrollment_id", ref: "course_id"}
	categoryCourses   = joinSet{table: "category_courses", owner: "category_id", ref: "course_id"}
)

// load returns the sorted member ids of one owner.
func (j joinSet) load(ctx context.Context, q queryer, ownerID int) ([]int, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s`, j.ref, j.table, j.owner, j.ref)
	rows, err := q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []int{}
	for rows.Next() {
		var ref int
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// loadMany returns member ids keyed by owner for every owner in ownerIDs.
func (j joinSet) loadMany(ctx context.Context, q queryer, ownerIDs []int) (map[int][]int, error) {
	sets := make(map[int][]int, len(ownerIDs))
	if len(ownerIDs) == 0 {
		return sets, nil
	}

	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s = ANY($1) ORDER BY %s, %s`,
		j.owner, j.ref, j.table, j.owner, j.owner, j.ref)
	rows, err := q.QueryContext(ctx, query, pq.Array(toInt64s(ownerIDs)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var owner, ref int
		if err := rows.Scan(&owner, &ref); err != nil {
			return nil, err
		}
		sets[owner] = append(sets[owner], ref)
	}
	return sets, rows.Err()
}

// replace rewrites the members of ownerID inside tx.
func (j joinSet) replace(ctx context.Context, tx *sql.Tx, ownerID int, refs []int) error {
	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, j.table, j.owner)
	if _, err := tx.ExecContext(ctx, deleteQuery, ownerID); err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}
	insertQuery := fmt.Sprintf(`INSERT INTO %s (%s, %s) SELECT $1, UNNEST($2::integer[])`, j.table, j.owner, j.ref)
	_, err := tx.ExecContext(ctx, insertQuery, ownerID, pq.Array(toInt64s(refs)))
	return err
}

// normalizeIDs sorts ids and drops duplicates, matching how the join
// table stores a set.
func normalizeIDs(ids []int) []int {
	out := append([]int{}, ids...)
	sort.Ints(out)
	n := 0
	for i, id := range out {
		if i > 0 && id == out[n-1] {
			continue
		}
		out[n] = id
		n++
	}
	return out[:n]
}

func toInt64s(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
