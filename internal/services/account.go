package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/coursehub/apiserver/internal/access"
	"github.com/coursehub/apiserver/internal/query"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

const (
	accountResource   = "accounts"
	maxPasswordLength = 72
)

// ErrInvalidCredentials is returned when a username and password pair
// does not match an active account.
var ErrInvalidCredentials = errors.New("no active account found with the given credentials")

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Schema() query.Schema
	List(ctx context.Context, p query.Params) ([]types.Account, int, error)
	GetByID(ctx context.Context, id int) (types.Account, error)
	GetByUsername(ctx context.Context, username string) (types.Account, error)
	Create(ctx context.Context, account types.Account) (types.Account, error)
	Delete(ctx context.Context, id int) error
}

// AccountService encapsulates registration, credential checks and
// administration of accounts.
type AccountService struct {
	repo     AccountRepository
	validate *validator.Validate
	events   *Events
}

func NewAccountService(repo AccountRepository, events *Events) *AccountService {
	return &AccountService{repo: repo, validate: NewValidator(), events: events}
}

// IdentityOf maps an account to the identity used for policy decisions.
func IdentityOf(account types.Account) access.Identity {
	role := access.Authenticated
	if account.IsSuperuser {
		role = access.Admin
	}
	return access.Identity{AccountID: account.ID, Role: role}
}

func (s *AccountService) Schema() query.Schema {
	return s.repo.Schema()
}

// Register creates a regular account.
func (s *AccountService) Register(ctx context.Context, username, password string) (types.Account, error) {
	return s.create(ctx, username, password, false)
}

// CreateSuperuser creates an administrator account.
func (s *AccountService) CreateSuperuser(ctx context.Context, username, password string) (types.Account, error) {
	return s.create(ctx, username, password, true)
}

// Authenticate returns the account matching the credentials.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (types.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return types.Account{}, ErrInvalidCredentials
	}

	account, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Account{}, ErrInvalidCredentials
		}
		return types.Account{}, fmt.Errorf("load account: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return types.Account{}, ErrInvalidCredentials
	}
	return account, nil
}

func (s *AccountService) GetByID(ctx context.Context, id int) (types.Account, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns a page of accounts. Only administrators may list accounts.
func (s *AccountService) List(ctx context.Context, ident access.Identity, p query.Params) (query.Result[types.Account], error) {
	if err := access.Check(http.MethodGet, ident, access.AdminOnly); err != nil {
		return query.Result[types.Account]{}, err
	}

	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return query.Result[types.Account]{}, fmt.Errorf("list accounts: %w", err)
	}
	return query.Result[types.Account]{Items: items, Count: total}, nil
}

// Delete removes an account together with its profile, enrollments and
// reviews. Only administrators may delete accounts.
func (s *AccountService) Delete(ctx context.Context, ident access.Identity, id int) error {
	if err := access.Check(http.MethodDelete, ident, access.AdminOnly); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.events.Emit(ctx, accountResource, ActionDeleted, id)
	return nil
}

func (s *AccountService) create(ctx context.Context, username, password string, superuser bool) (types.Account, error) {
	account := types.Account{
		Username:    strings.TrimSpace(username),
		IsSuperuser: superuser,
	}

	fields := map[string]string{}
	if err := validateRecord(s.validate, account); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return types.Account{}, err
		}
		fields = verr.Fields
	}
	switch {
	case password == "":
		fields["password"] = "this field is required"
	case len(password) > maxPasswordLength:
		fields["password"] = fmt.Sprintf("ensure this field has no more than %d characters", maxPasswordLength)
	}
	if len(fields) > 0 {
		return types.Account{}, &ValidationError{Fields: fields}
	}

	if _, err := s.repo.GetByUsername(ctx, account.Username); err == nil {
		return types.Account{}, &ValidationError{Fields: map[string]string{
			"username": "a user with that username already exists",
		}}
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.Account{}, fmt.Errorf("check username: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return types.Account{}, fmt.Errorf("hash password: %w", err)
	}
	account.PasswordHash = string(hashed)

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		return types.Account{}, asValidationError(err)
	}
	s.events.Emit(ctx, accountResource, ActionCreated, created.ID)
	return created, nil
}
