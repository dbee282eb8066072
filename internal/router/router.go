// Package router wires the HTTP surface of the service: registration,
// login, the protected image search and the health endpoints.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validator "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/imgsearch/internal/auth"
	"github.com/patric-chuzhbe/imgsearch/internal/logger"
	"github.com/patric-chuzhbe/imgsearch/internal/models"
	"github.com/patric-chuzhbe/imgsearch/internal/search"
	"github.com/patric-chuzhbe/imgsearch/internal/service"
	"github.com/patric-chuzhbe/imgsearch/internal/user"
)

type appService interface {
	Register(ctx context.Context, request models.RegisterRequest) error
	Login(ctx context.Context, username, password string) (models.LoginResponse, error)
	SearchImages(ctx context.Context, query string, usr *user.User) (models.SearchResponse, error)
	Ping(ctx context.Context) error
}

type authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
}

const rootMessage = "Protected Image Search API Running"

// Router holds the handler dependencies.
type Router struct {
	service  appService
	validate *validator.Validate
}

// New returns the chi router with all routes and middleware mounted.
func New(svc appService, theAuth authenticator) *chi.Mux {
	myRouter := &Router{
		service:  svc,
		validate: validator.New(),
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.Recoverer,
		logger.WithLoggingHTTPMiddleware,
		allowAnyOrigin,
		middleware.Compress(5, "application/json"),
	)

	router.Get(`/`, myRouter.GetRoot)
	router.Get(`/ping`, myRouter.GetPing)
	router.Post(`/register`, myRouter.PostRegister)
	router.Post(`/login`, myRouter.PostLogin)
	router.With(theAuth.AuthenticateUser).Get(`/search`, myRouter.GetSearch)

	return router
}

func (router *Router) GetRoot(res http.ResponseWriter, req *http.Request) {
	writeJSON(res, http.StatusOK, models.MessageResponse{Message: rootMessage})
}

func (router *Router) GetPing(res http.ResponseWriter, req *http.Request) {
	if err := router.service.Ping(req.Context()); err != nil {
		logger.Log.Debugln("Error calling the `router.service.Ping()`: ", zap.Error(err))
		res.WriteHeader(http.StatusInternalServerError)
		return
	}
	res.WriteHeader(http.StatusOK)
}

func (router *Router) PostRegister(res http.ResponseWriter, req *http.Request) {
	var request models.RegisterRequest
	if err := json.NewDecoder(req.Body).Decode(&request); err != nil {
		writeDetail(res, http.StatusUnprocessableEntity, "Malformed request body")
		return
	}
	if err := router.validate.Struct(request); err != nil {
		writeDetail(res, http.StatusUnprocessableEntity, err.Error())
		return
	}

	err := router.service.Register(req.Context(), request)
	if errors.Is(err, service.ErrUserAlreadyExists) {
		writeDetail(res, http.StatusBadRequest, "Username already exists")
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.service.Register()`: ", zap.Error(err))
		writeDetail(res, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(res, http.StatusOK, models.MessageResponse{Message: "User registered successfully"})
}

// PostLogin accepts an application/x-www-form-urlencoded body with
// username and password fields.
func (router *Router) PostLogin(res http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeDetail(res, http.StatusUnprocessableEntity, "Malformed form body")
		return
	}
	request := models.LoginRequest{
		Username: req.PostForm.Get("username"),
		Password: req.PostForm.Get("password"),
	}
	if err := router.validate.Struct(request); err != nil {
		writeDetail(res, http.StatusUnprocessableEntity, err.Error())
		return
	}

	response, err := router.service.Login(req.Context(), request.Username, request.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		writeDetail(res, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if err != nil {
		logger.Log.Debugln("Error calling the `router.service.Login()`: ", zap.Error(err))
		writeDetail(res, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(res, http.StatusOK, response)
}

func (router *Router) GetSearch(res http.ResponseWriter, req *http.Request) {
	usr, ok := auth.UserFromContext(req.Context())
	if !ok {
		writeDetail(res, http.StatusUnauthorized, "Invalid authentication")
		return
	}

	query := req.URL.Query()
	if !query.Has("query") {
		writeDetail(res, http.StatusUnprocessableEntity, "Missing query parameter")
		return
	}

	response, err := router.service.SearchImages(req.Context(), query.Get("query"), usr)
	switch {
	case errors.Is(err, service.ErrSearchKeyNotFound):
		writeJSON(res, http.StatusServiceUnavailable, models.SearchErrorResponse{Error: err.Error()})
	case errors.Is(err, search.ErrProviderResponse):
		logger.Log.Warnw("search provider failed", "query", query.Get("query"), zap.Error(err))
		writeDetail(res, http.StatusBadGateway, "Search provider error")
	case err != nil:
		logger.Log.Debugln("Error calling the `router.service.SearchImages()`: ", zap.Error(err))
		writeDetail(res, http.StatusInternalServerError, "Internal server error")
	default:
		writeJSON(res, http.StatusOK, response)
	}
}

// allowAnyOrigin is a permissive CORS policy for browser clients.
func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeDetail(res http.ResponseWriter, statusCode int, detail string) {
	writeJSON(res, statusCode, models.ErrorResponse{Detail: detail})
}

func writeJSON(res http.ResponseWriter, statusCode int, body interface{}) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(statusCode)

	if err := json.NewEncoder(res).Encode(body); err != nil {
		logger.Log.Debugln("Error calling the `json.NewEncoder(res).Encode()`: ", zap.Error(err))
	}
}
