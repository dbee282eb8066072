package models

import (
	"encoding/json"
	"errors"
)

type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginRequest struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// SearchErrorResponse is returned by the search endpoint when the provider
// key is not configured.
type SearchErrorResponse struct {
	Error string `json:"error"`
}

// SearchResult is a single image projected from the provider response.
// Field values are passed through as the provider sent them; absent
// fields are encoded as JSON null.
type SearchResult struct {
	Title     json.RawMessage `json:"title"`
	Thumbnail json.RawMessage `json:"thumbnail"`
	Source    json.RawMessage `json:"source"`
}

type SearchResponse struct {
	SearchedBy string         `json:"searched_by"`
	Query      string         `json:"query"`
	Results    []SearchResult `json:"results"`
}

const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// TokenTypeBearer is the token_type reported by the login endpoint.
const TokenTypeBearer = "bearer"

var ErrUserAlreadyExists = errors.New("username already exists")
