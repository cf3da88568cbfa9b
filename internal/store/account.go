package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/types"
)

const accountColumns = "id, username, password_hash, is_superuser, date_joined"

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Schema() query.Schema {
	return AccountSchema
}

func (r *AccountRepository) List(ctx context.Context, p query.Params) ([]types.Account, int, error) {
	return listWindow(ctx, r.db, AccountSchema, p, accountColumns, scanAccount)
}

func (r *AccountRepository) GetByID(ctx context.Context, id int) (types.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (types.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	return r.getOne(ctx, query, username)
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	account.DateJoined = time.Now()

	const query = `
		INSERT INTO accounts (username, password_hash, is_superuser, date_joined)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		account.Username,
		account.PasswordHash,
		account.IsSuperuser,
		account.DateJoined,
	).Scan(&account.ID); err != nil {
		return types.Account{}, translateError(err)
	}
	return account, nil
}

// Delete removes the account together with its profile, enrollments and
// reviews (ON DELETE CASCADE).
func (r *AccountRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *AccountRepository) getOne(ctx context.Context, query string, arg any) (types.Account, error) {
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Account{}, ErrNotFound
		}
		return types.Account{}, err
	}
	return account, nil
}

func scanAccount(s scanner) (types.Account, error) {
	var account types.Account
	err := s.Scan(
		&account.ID,
		&account.Username,
		&account.PasswordHash,
		&account.IsSuperuser,
		&account.DateJoined,
	)
	return account, err
}
