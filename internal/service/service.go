// Package service holds the registration, login and search flows.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/imgsearch/internal/logger"
	"github.com/patric-chuzhbe/imgsearch/internal/models"
	"github.com/patric-chuzhbe/imgsearch/internal/user"
)

type transactioner interface {
	BeginTransaction(ctx context.Context) (*sql.Tx, error)

	RollbackTransaction(transaction *sql.Tx) error

	CommitTransaction(transaction *sql.Tx) error
}

type userKeeper interface {
	FindUserByUsername(
		ctx context.Context,
		username string,
		transaction *sql.Tx,
	) (*user.User, bool, error)

	InsertUser(
		ctx context.Context,
		usr *user.User,
		transaction *sql.Tx,
	) (*user.User, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storage interface {
	transactioner
	userKeeper
	pinger
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

type tokenIssuer interface {
	Issue(subject string) (string, error)
}

type imageSearcher interface {
	SearchImages(ctx context.Context, query, apiKey string) ([]models.SearchResult, error)
}

// KeyLookup returns the provider API key and whether it is set.
// It is called on every search request.
type KeyLookup func() (string, bool)

// ErrUserAlreadyExists is returned by Register for a taken username.
var ErrUserAlreadyExists = models.ErrUserAlreadyExists

// ErrInvalidCredentials is returned by Login for an unknown user and for
// a wrong password alike.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrSearchKeyNotFound is returned by SearchImages when no provider key is
// configured. No outbound call is made in that case.
var ErrSearchKeyNotFound = errors.New("SerpAPI key not found")

type Service struct {
	db        storage
	hasher    passwordHasher
	tokens    tokenIssuer
	searcher  imageSearcher
	keyLookup KeyLookup
}

func New(
	db storage,
	hasher passwordHasher,
	tokens tokenIssuer,
	searcher imageSearcher,
	keyLookup KeyLookup,
) *Service {
	return &Service{
		db:        db,
		hasher:    hasher,
		tokens:    tokens,
		searcher:  searcher,
		keyLookup: keyLookup,
	}
}

// Register creates a user. The lookup and the insert share one
// transaction; a uniqueness violation reported by the store is treated
// the same as a username found by the lookup.
func (s *Service) Register(ctx context.Context, request models.RegisterRequest) error {
	return s.inTransaction(ctx, func(tx *sql.Tx) error {
		_, found, err := s.db.FindUserByUsername(ctx, request.Username, tx)
		if err != nil {
			return fmt.Errorf("in internal/service/service.go/Register(): error while `s.db.FindUserByUsername()` calling: %w", err)
		}
		if found {
			return ErrUserAlreadyExists
		}

		passwordHash, err := s.hasher.Hash(request.Password)
		if err != nil {
			return fmt.Errorf("in internal/service/service.go/Register(): error while `s.hasher.Hash()` calling: %w", err)
		}

		_, err = s.db.InsertUser(
			ctx,
			&user.User{
				Username:     request.Username,
				Email:        request.Email,
				PasswordHash: passwordHash,
			},
			tx,
		)
		if err != nil {
			return fmt.Errorf("in internal/service/service.go/Register(): error while `s.db.InsertUser()` calling: %w", err)
		}

		return nil
	})
}

// Login checks the credentials and issues a bearer token whose subject is
// the username.
func (s *Service) Login(ctx context.Context, username, password string) (models.LoginResponse, error) {
	usr, found, err := s.db.FindUserByUsername(ctx, username, nil)
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("in internal/service/service.go/Login(): error while `s.db.FindUserByUsername()` calling: %w", err)
	}
	if !found || !s.hasher.Verify(password, usr.PasswordHash) {
		return models.LoginResponse{}, ErrInvalidCredentials
	}

	accessToken, err := s.tokens.Issue(usr.Username)
	if err != nil {
		return models.LoginResponse{}, fmt.Errorf("in internal/service/service.go/Login(): error while `s.tokens.Issue()` calling: %w", err)
	}

	return models.LoginResponse{
		AccessToken: accessToken,
		TokenType:   models.TokenTypeBearer,
	}, nil
}

// SearchImages forwards query to the provider on behalf of usr.
func (s *Service) SearchImages(ctx context.Context, query string, usr *user.User) (models.SearchResponse, error) {
	apiKey, ok := s.keyLookup()
	if !ok || apiKey == "" {
		return models.SearchResponse{}, ErrSearchKeyNotFound
	}

	results, err := s.searcher.SearchImages(ctx, query, apiKey)
	if err != nil {
		return models.SearchResponse{}, fmt.Errorf("in internal/service/service.go/SearchImages(): error while `s.searcher.SearchImages()` calling: %w", err)
	}

	return models.SearchResponse{
		SearchedBy: usr.Username,
		Query:      query,
		Results:    results,
	}, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return fmt.Errorf("in internal/service/service.go/Ping(): error while `s.db.Ping()` calling: %w", err)
	}

	return nil
}

// inTransaction runs fn in a transaction that is committed when fn
// succeeds and rolled back on error or panic.
func (s *Service) inTransaction(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("in internal/service/service.go/inTransaction(): error while `s.db.BeginTransaction()` calling: %w", err)
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if rollbackErr := s.db.RollbackTransaction(tx); rollbackErr != nil {
			logger.Log.Debugln("Error calling the `s.db.RollbackTransaction()`: ", zap.Error(rollbackErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = s.db.CommitTransaction(tx); err != nil {
		return fmt.Errorf("in internal/service/service.go/inTransaction(): error while `s.db.CommitTransaction()` calling: %w", err)
	}
	committed = true

	return nil
}
