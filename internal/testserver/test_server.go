// Package testserver runs the full stack over an in-memory database for
// integration and functional tests.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/domain/user"
	"github.com/rpggio/tally/internal/domain/vote"
	"github.com/rpggio/tally/internal/ledger"
	"github.com/rpggio/tally/internal/mcp"
	"github.com/rpggio/tally/internal/sqlite"
	"github.com/rpggio/tally/internal/transport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	AdminEmail    = "admin@tally.test"
	AdminPassword = "admin-password"
)

type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB
	Chain  *ledger.Chain
	// Ledger sits between the services and the chain; take it down to
	// simulate an outage.
	Ledger *SwitchLedger
	Votes  *vote.Service
}

func New(t *testing.T) *TestServer {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	chain, err := ledger.NewChain(ctx, sqlite.NewBlockStore(db))
	require.NoError(t, err)
	switched := &SwitchLedger{next: chain}
	client := ledger.NewGuard(switched, ledger.GuardConfig{
		Timeout:          time.Second,
		Backoff:          time.Millisecond,
		FailureThreshold: 100,
	})

	issuer, err := auth.NewIssuer("test-secret", time.Hour)
	require.NoError(t, err)

	userSvc := user.NewService(sqlite.NewUserRepository(db), issuer, nil).WithHashCost(bcrypt.MinCost)
	projectRepo := sqlite.NewProjectRepository(db)
	projectSvc := project.NewService(projectRepo, client, nil)
	voteSvc := vote.NewService(sqlite.NewVoteRepository(db), projectRepo, client, nil, vote.WithLeaseTTL(time.Second))

	_, err = userSvc.EnsureAdmin(ctx, AdminEmail, AdminPassword)
	require.NoError(t, err)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{Projects: projectSvc, Votes: voteSvc},
		Resolver: issuer,
	})

	server := httptest.NewServer(transport.NewServer(transport.Config{
		Services: transport.Services{Users: userSvc, Projects: projectSvc, Votes: voteSvc},
		Resolver: issuer,
		MCP:      mcp.NewHTTPHandler(mcpServer, time.Minute),
	}))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server: server,
		DB:     db,
		Chain:  chain,
		Ledger: switched,
		Votes:  voteSvc,
	}
}

// Do sends a JSON request and decodes the JSON response body.
func (ts *TestServer) Do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

// Login returns a bearer token for an existing account.
func (ts *TestServer) Login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := ts.Do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusOK, status, "login %s: %v", email, body)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	return token
}

// Register creates an account with role and returns its bearer token.
func (ts *TestServer) Register(t *testing.T, name string, role auth.Role) string {
	t.Helper()
	email := strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@tally.test"
	password := "password-" + name
	status, body := ts.Do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     name,
		"email":    email,
		"password": password,
		"role":     string(role),
	})
	require.Equal(t, http.StatusCreated, status, "register %s: %v", name, body)
	return ts.Login(t, email, password)
}

// CreateActiveProject creates a project as manager and activates it.
func (ts *TestServer) CreateActiveProject(t *testing.T, managerToken, title string) string {
	t.Helper()
	now := time.Now().UTC()
	status, body := ts.Do(t, http.MethodPost, "/api/projects", managerToken, map[string]any{
		"title":       title,
		"description": title + " proposal",
		"start_date":  now,
		"end_date":    now.Add(30 * 24 * time.Hour),
	})
	require.Equal(t, http.StatusCreated, status, "create project: %v", body)
	id := body["project"].(map[string]any)["id"].(string)

	status, body = ts.Do(t, http.MethodPut, "/api/projects/"+id, managerToken, map[string]string{"status": "active"})
	require.Equal(t, http.StatusOK, status, "activate project: %v", body)
	return id
}

// SwitchLedger forwards to a ledger client unless it is down.
type SwitchLedger struct {
	next ledger.Client
	down atomic.Bool
}

// SetDown makes every call fail with ledger.ErrUnavailable while down is true.
func (s *SwitchLedger) SetDown(down bool) {
	s.down.Store(down)
}

func (s *SwitchLedger) RecordProject(ctx context.Context, title string) (string, error) {
	if s.down.Load() {
		return "", ledger.ErrUnavailable
	}
	return s.next.RecordProject(ctx, title)
}

func (s *SwitchLedger) RecordVote(ctx context.Context, projectRef, voteHash, voterAddress string) (string, error) {
	if s.down.Load() {
		return "", ledger.ErrUnavailable
	}
	return s.next.RecordVote(ctx, projectRef, voteHash, voterAddress)
}
