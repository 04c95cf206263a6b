package transport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/domain/user"
	"github.com/rpggio/tally/internal/domain/vote"
)

// UserService defines account operations needed by HTTP handlers.
type UserService interface {
	Register(ctx context.Context, req user.RegisterRequest) (*user.User, error)
	Login(ctx context.Context, email, password string) (*user.User, string, error)
	Get(ctx context.Context, id string) (*user.User, error)
}

// ProjectService defines project operations needed by HTTP handlers.
type ProjectService interface {
	Create(ctx context.Context, caller auth.Identity, req project.CreateRequest) (*project.Project, error)
	List(ctx context.Context) ([]project.Project, error)
	Get(ctx context.Context, id string) (*project.Project, error)
	Update(ctx context.Context, caller auth.Identity, id string, req project.UpdateRequest) (*project.Project, error)
}

// VoteService defines voting operations needed by HTTP handlers.
type VoteService interface {
	Cast(ctx context.Context, caller auth.Identity, projectID string) (*vote.Vote, error)
	ListForProject(ctx context.Context, caller auth.Identity, projectID string) ([]vote.Vote, error)
	ListForVoter(ctx context.Context, caller auth.Identity) ([]vote.Vote, error)
}

// Services contains the domain services behind the API.
type Services struct {
	Users    UserService
	Projects ProjectService
	Votes    VoteService
}

// Config wires the HTTP server.
type Config struct {
	Services Services
	Resolver IdentityResolver
	// MCP, when set, is mounted at /mcp behind bearer authentication.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server holds the handlers.
type Server struct {
	users    UserService
	projects ProjectService
	votes    VoteService
}

// NewServer creates an HTTP router with middleware.
func NewServer(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	srv := &Server{
		users:    cfg.Services.Users,
		projects: cfg.Services.Projects,
		votes:    cfg.Services.Votes,
	}
	requireAuth := AuthMiddleware(cfg.Resolver)
	managers := RequireRole(auth.RoleProjectManager, auth.RoleAdmin)

	r.Get("/health", srv.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", srv.handleRegister)
			r.Post("/login", srv.handleLogin)
			r.With(requireAuth).Get("/profile", srv.handleProfile)
		})

		r.Route("/projects", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", srv.handleListProjects)
			r.Get("/{id}", srv.handleGetProject)
			r.With(managers).Post("/", srv.handleCreateProject)
			r.With(managers).Put("/{id}", srv.handleUpdateProject)
		})

		r.Route("/voting", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/projects/{id}/vote", srv.handleCastVote)
			r.With(managers).Get("/projects/{id}/votes", srv.handleProjectVotes)
			r.Get("/my-votes", srv.handleMyVotes)
		})
	})

	if cfg.MCP != nil {
		r.With(requireAuth).Handle("/mcp", cfg.MCP)
		r.With(requireAuth).Handle("/mcp/*", cfg.MCP)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "Route not found", errNoRoute)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
