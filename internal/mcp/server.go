package mcp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/domain/vote"
)

// ProjectService defines project operations needed by MCP.
type ProjectService interface {
	List(ctx context.Context) ([]project.Project, error)
	Get(ctx context.Context, id string) (*project.Project, error)
}

// VoteService defines voting operations needed by MCP.
type VoteService interface {
	Cast(ctx context.Context, caller auth.Identity, projectID string) (*vote.Vote, error)
	ListForProject(ctx context.Context, caller auth.Identity, projectID string) ([]vote.Vote, error)
	ListForVoter(ctx context.Context, caller auth.Identity) ([]vote.Vote, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Projects ProjectService
	Votes    VoteService
}

// Config contains server configuration.
type Config struct {
	Services Services
	Resolver IdentityResolver
	Logger   *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "tally",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	// Later middleware runs first: identity is resolved before traffic is logged.
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddReceivingMiddleware(identityMiddleware(cfg.Resolver))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, &toolset{projects: cfg.Services.Projects, votes: cfg.Services.Votes})

	return server
}

// NewHTTPHandler serves server over the streamable HTTP transport.
func NewHTTPHandler(server *sdkmcp.Server, sessionTimeout time.Duration) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return server },
		&sdkmcp.StreamableHTTPOptions{
			SessionTimeout: sessionTimeout,
		},
	)
}
