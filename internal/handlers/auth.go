package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/coursehub/apiserver/config"
	"github.com/coursehub/apiserver/internal/access"
	"github.com/coursehub/apiserver/internal/services"
	"github.com/coursehub/apiserver/internal/store"
	"github.com/coursehub/apiserver/types"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	defaultAccessTTL  = 5 * time.Minute
	defaultRefreshTTL = 24 * time.Hour

	msgTokenInvalid = "token is invalid or expired"
)

var errWrongTokenType = errors.New("wrong token type")

// Claims are the JWT claims issued by the server. Type distinguishes
// access tokens from refresh tokens.
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 tokens.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenIssuer constructs an issuer from config. Non-positive lifetimes
// fall back to five minutes for access and a day for refresh tokens.
func NewTokenIssuer(cfg config.AuthConfig) *TokenIssuer {
	issuer := &TokenIssuer{
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		now:        time.Now,
	}
	if issuer.accessTTL <= 0 {
		issuer.accessTTL = defaultAccessTTL
	}
	if issuer.refreshTTL <= 0 {
		issuer.refreshTTL = defaultRefreshTTL
	}
	return issuer
}

// Issue signs a token of the given type for the account.
func (t *TokenIssuer) Issue(accountID int, tokenType string) (string, error) {
	ttl := t.accessTTL
	if tokenType == tokenTypeRefresh {
		ttl = t.refreshTTL
	}

	now := t.now()
	claims := Claims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(accountID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse verifies tokenString. An empty wantType accepts either type.
func (t *TokenIssuer) Parse(tokenString, wantType string) (Claims, error) {
	claims := Claims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (any, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Claims{}, err
	}
	if !token.Valid {
		return Claims{}, errors.New("invalid token")
	}
	if claims.Type != tokenTypeAccess && claims.Type != tokenTypeRefresh {
		return Claims{}, errWrongTokenType
	}
	if wantType != "" && claims.Type != wantType {
		return Claims{}, errWrongTokenType
	}
	return claims, nil
}

// AccountID returns the subject as an account id.
func (c Claims) AccountID() (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(c.Subject))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid subject %q", c.Subject)
	}
	return id, nil
}

// AuthHandler provides token and account endpoints.
type AuthHandler struct {
	accounts *services.AccountService
	tokens   *TokenIssuer
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(accounts *services.AccountService, tokens *TokenIssuer) *AuthHandler {
	return &AuthHandler{accounts: accounts, tokens: tokens}
}

// TokenRouter registers the token obtain, refresh and verify routes.
func TokenRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/", handler.Obtain)
	r.Post("/refresh", handler.Refresh)
	r.Post("/verify", handler.Verify)
}

// AuthRouter registers account registration and the current-account route.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Post("/register", handler.Register)
	r.With(RequireAuth).Get("/me", handler.Me)
}

// Identify resolves the bearer token, if any, to an identity on the
// request context. Requests without credentials proceed as anonymous;
// requests with bad credentials are rejected.
func (h *AuthHandler) Identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.TrimSpace(r.Header.Get("Authorization")) == "" {
			next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), access.AnonymousIdentity)))
			return
		}

		tokenString, err := bearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		claims, err := h.tokens.Parse(tokenString, tokenTypeAccess)
		if err != nil {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		accountID, err := claims.AccountID()
		if err != nil {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}

		account, err := h.accounts.GetByID(r.Context(), accountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, msgUnauthorized)
				return
			}
			writeServiceError(w, r, err, msgNotFound)
			return
		}

		ctx := withIdentity(r.Context(), services.IdentityOf(account))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects anonymous requests.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IdentityFromContext(r.Context()).IsAuthenticated() {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Obtain exchanges credentials for an access and refresh token pair.
func (h *AuthHandler) Obtain(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if fields := req.missingFields(); len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msgValidation, Fields: fields})
		return
	}

	account, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err, msgNotFound)
		return
	}

	pair, err := h.issuePair(account.ID)
	if err != nil {
		writeServiceError(w, r, err, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Refresh exchanges a refresh token for a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Refresh) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  msgValidation,
			Fields: map[string]string{"refresh": "this field is required"},
		})
		return
	}

	claims, err := h.tokens.Parse(req.Refresh, tokenTypeRefresh)
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgTokenInvalid)
		return
	}
	accountID, err := claims.AccountID()
	if err != nil {
		writeError(w, http.StatusUnauthorized, msgTokenInvalid)
		return
	}

	accessToken, err := h.tokens.Issue(accountID, tokenTypeAccess)
	if err != nil {
		writeServiceError(w, r, fmt.Errorf("sign access token: %w", err), msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, AccessResponse{Access: accessToken})
}

// Verify reports whether a token of either type is valid.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:  msgValidation,
			Fields: map[string]string{"token": "this field is required"},
		})
		return
	}

	if _, err := h.tokens.Parse(req.Token, ""); err != nil {
		writeError(w, http.StatusUnauthorized, msgTokenInvalid)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

// Register creates a regular account and returns a token pair.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, err, msgNotFound)
		return
	}

	pair, err := h.issuePair(account.ID)
	if err != nil {
		writeServiceError(w, r, err, msgNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, RegisterResponse{TokenPair: pair, User: account})
}

// Me returns the current authenticated account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident := IdentityFromContext(r.Context())
	account, err := h.accounts.GetByID(r.Context(), ident.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, msgUnauthorized)
			return
		}
		writeServiceError(w, r, err, msgNotFound)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (h *AuthHandler) issuePair(accountID int) (TokenPair, error) {
	accessToken, err := h.tokens.Issue(accountID, tokenTypeAccess)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refreshToken, err := h.tokens.Issue(accountID, tokenTypeRefresh)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}
	return TokenPair{Access: accessToken, Refresh: refreshToken}, nil
}

type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c CredentialsRequest) missingFields() map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(c.Username) == "" {
		fields["username"] = "this field is required"
	}
	if c.Password == "" {
		fields["password"] = "this field is required"
	}
	return fields
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type VerifyRequest struct {
	Token string `json:"token"`
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type AccessResponse struct {
	Access string `json:"access"`
}

type RegisterResponse struct {
	TokenPair
	User types.Account `json:"user"`
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
