// Package auth provides the bearer-token gate for protected routes. It
// extracts the token from the Authorization header, validates it and
// resolves its subject to a stored user.
package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/imgsearch/internal/logger"
	"github.com/patric-chuzhbe/imgsearch/internal/models"
	"github.com/patric-chuzhbe/imgsearch/internal/user"
)

type userFinder interface {
	FindUserByUsername(
		ctx context.Context,
		username string,
		transaction *sql.Tx,
	) (*user.User, bool, error)
}

type tokenValidator interface {
	Validate(tokenString string) (string, error)
}

// ErrUnauthorized is returned for every authentication failure; the cause
// is only logged.
var ErrUnauthorized = errors.New("invalid authentication")

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserKey is the context key under which the authenticated *user.User is stored.
const UserKey ContextKey = "user"

const bearerScheme = "bearer"

// Auth authenticates requests against the credential store.
type Auth struct {
	db     userFinder
	tokens tokenValidator
}

func New(db userFinder, tokens tokenValidator) *Auth {
	return &Auth{
		db:     db,
		tokens: tokens,
	}
}

// Authenticate resolves the user that the request's bearer token belongs to.
func (a *Auth) Authenticate(request *http.Request) (*user.User, error) {
	tokenString, ok := bearerToken(request)
	if !ok {
		logger.Log.Debugln("No bearer token in the `Authorization` header")
		return nil, ErrUnauthorized
	}

	subject, err := a.tokens.Validate(tokenString)
	if err != nil {
		logger.Log.Debugln("Error calling the `a.tokens.Validate()`: ", zap.Error(err))
		return nil, ErrUnauthorized
	}
	if subject == "" {
		logger.Log.Debugln("Token has no subject")
		return nil, ErrUnauthorized
	}

	usr, found, err := a.db.FindUserByUsername(request.Context(), subject, nil)
	if err != nil {
		logger.Log.Debugln("Error calling the `a.db.FindUserByUsername()`: ", zap.Error(err))
		return nil, ErrUnauthorized
	}
	if !found {
		logger.Log.Debugln("Token subject does not exist: ", subject)
		return nil, ErrUnauthorized
	}

	return usr, nil
}

// AuthenticateUser is an HTTP middleware that rejects unauthenticated
// requests with 401 and stores the resolved user in the request context.
func (a *Auth) AuthenticateUser(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		usr, err := a.Authenticate(request)
		if err != nil {
			writeUnauthorized(response)
			return
		}

		ctx := context.WithValue(request.Context(), UserKey, usr)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserFromContext returns the user stored by AuthenticateUser.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	usr, ok := ctx.Value(UserKey).(*user.User)
	return usr, ok && usr != nil
}

func bearerToken(request *http.Request) (string, bool) {
	scheme, tokenString, found := strings.Cut(request.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return "", false
	}
	tokenString = strings.TrimSpace(tokenString)

	return tokenString, tokenString != ""
}

func writeUnauthorized(response http.ResponseWriter) {
	response.Header().Set("WWW-Authenticate", "Bearer")
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(http.StatusUnauthorized)

	err := json.NewEncoder(response).Encode(models.ErrorResponse{Detail: "Invalid authentication"})
	if err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(response).Encode()`: ", zap.Error(err))
	}
}
