// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP server.
//
// DEPENDENCY FLOW:
//
//	config → sqlite.DB → AccountService / JournalService → handlers → chi router
//
// Each layer receives only what it needs; handlers never see the store.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/traildiary/traildiary/internal/auth"
	"github.com/traildiary/traildiary/internal/config"
	"github.com/traildiary/traildiary/internal/handler"
	"github.com/traildiary/traildiary/internal/middleware"
	sqliteRepo "github.com/traildiary/traildiary/internal/repository/sqlite"
	"github.com/traildiary/traildiary/internal/service"
)

const shutdownTimeout = 30 * time.Second

// Server owns the database; Start closes it on the way out.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens (and migrates) the database and wires every route.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	passwords, err := auth.NewPasswordService(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	db, err := sqliteRepo.New(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, passwords)
	return s, nil
}

// setupRoutes mounts:
//
//	POST   /api/register | /api/login | /api/logout
//	POST   /api/password/reset/code | /api/password/reset
//	GET    /api/search/popular
//
//	authenticated (Bearer token or "token" cookie):
//	GET|PUT|DELETE /api/me          PUT /api/me/avatar     GET /api/me/stats
//	GET|POST       /api/notebooks   PUT /api/notebooks/reorder
//	GET|PUT|DELETE /api/notebooks/{id}
//	POST /api/notebooks/{id}/recount   GET /api/notebooks/{id}/diaries
//	GET|POST       /api/diaries     GET|DELETE /api/diaries/drafts
//	GET|PUT|DELETE /api/diaries/{id}
//	POST /api/diaries/{id}/like     PUT|DELETE /api/diaries/{id}/favorite
//	GET /api/favorites
//	GET /api/search                 GET|DELETE /api/search/history
//
// Middleware order: RequestID first so Logger can read it, Recoverer inside
// Logger so a panic is still logged as a 500.
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	accounts := service.NewAccountService(s.db.Users(), s.db.Notebooks(), s.db.PasswordResets(), passwords, tokens, s.logger)
	journal := service.NewJournalService(s.db.Notebooks(), s.db.Diaries(), s.db.Favorites(), s.db.SearchHistory(), s.logger)

	accountHandler := handler.NewAccountHandler(accounts, journal, tokens.TTL(), s.logger)
	notebookHandler := handler.NewNotebookHandler(journal, s.logger)
	diaryHandler := handler.NewDiaryHandler(journal, s.logger)
	searchHandler := handler.NewSearchHandler(journal, s.logger)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/register", accountHandler.HandleRegister)
		r.Post("/login", accountHandler.HandleLogin)
		r.Post("/logout", accountHandler.HandleLogout)
		r.Post("/password/reset/code", accountHandler.HandleRequestResetCode)
		r.Post("/password/reset", accountHandler.HandleResetPassword)
		r.Get("/search/popular", searchHandler.HandlePopular)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Use(middleware.TagUser)

			r.Get("/me", accountHandler.HandleMe)
			r.Put("/me", accountHandler.HandleUpdateProfile)
			r.Delete("/me", accountHandler.HandleDeleteAccount)
			r.Put("/me/avatar", accountHandler.HandleUpdateAvatar)
			r.Get("/me/stats", accountHandler.HandleStats)

			r.Route("/notebooks", func(r chi.Router) {
				r.Get("/", notebookHandler.HandleList)
				r.Post("/", notebookHandler.HandleCreate)
				r.Put("/reorder", notebookHandler.HandleReorder)
				r.Get("/{id}", notebookHandler.HandleGet)
				r.Put("/{id}", notebookHandler.HandleUpdate)
				r.Delete("/{id}", notebookHandler.HandleDelete)
				r.Post("/{id}/recount", notebookHandler.HandleRecount)
				r.Get("/{id}/diaries", notebookHandler.HandleDiaries)
			})

			r.Route("/diaries", func(r chi.Router) {
				r.Get("/", diaryHandler.HandleList)
				r.Post("/", diaryHandler.HandleCreate)
				r.Get("/drafts", diaryHandler.HandleDrafts)
				r.Delete("/drafts", diaryHandler.HandleDiscardDrafts)
				r.Get("/{id}", diaryHandler.HandleGet)
				r.Put("/{id}", diaryHandler.HandleUpdate)
				r.Delete("/{id}", diaryHandler.HandleDelete)
				r.Post("/{id}/like", diaryHandler.HandleLike)
				r.Put("/{id}/favorite", diaryHandler.HandleFavorite)
				r.Delete("/{id}/favorite", diaryHandler.HandleUnfavorite)
			})
			r.Get("/favorites", diaryHandler.HandleFavorites)

			r.Get("/search", searchHandler.HandleSearch)
			r.Get("/search/history", searchHandler.HandleHistory)
			r.Delete("/search/history", searchHandler.HandleForget)
		})
	})
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Close releases the database. Start calls it; tests that never Start call
// it themselves.
func (s *Server) Close() error { return s.db.Close() }

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
