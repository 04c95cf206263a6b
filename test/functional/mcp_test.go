package functional_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/testserver"
	"github.com/stretchr/testify/require"
)

// bearerTransport adds the Authorization header to every MCP request.
type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (b *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", "Bearer "+b.token)
	return b.next.RoundTrip(req)
}

type mcpSession struct {
	session *sdkmcp.ClientSession
}

func newMCPSession(t *testing.T, ts *testserver.TestServer, token string) *mcpSession {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	transport := &sdkmcp.StreamableClientTransport{
		Endpoint: ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{
			Transport: &bearerTransport{token: token, next: http.DefaultTransport},
		},
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	return &mcpSession{session: session}
}

func (s *mcpSession) call(t *testing.T, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := s.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool %s failed", name)
	return result
}

func (s *mcpSession) callTool(t *testing.T, name string, args map[string]any) json.RawMessage {
	t.Helper()
	result := s.call(t, name, args)
	require.False(t, result.IsError, "Tool %s returned error: %s", name, toolText(result))
	return json.RawMessage(toolText(result))
}

func toolText(result *sdkmcp.CallToolResult) string {
	var parts []string
	for _, content := range result.Content {
		if text, ok := content.(*sdkmcp.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func TestMCP_ListToolsAndGuide(t *testing.T) {
	ts := testserver.New(t)
	token := ts.Register(t, "Reader", auth.RoleVoter)
	s := newMCPSession(t, ts, token)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tools, err := s.session.ListTools(ctx, nil)
	require.NoError(t, err)

	names := make(map[string]*sdkmcp.Tool, len(tools.Tools))
	for _, tool := range tools.Tools {
		names[tool.Name] = tool
	}
	for _, name := range []string{"list_projects", "get_project", "cast_vote", "list_my_votes", "list_project_votes"} {
		require.Contains(t, names, name)
		require.NotEmpty(t, names[name].Description)
	}

	read, err := s.session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "tally://guide/voting"})
	require.NoError(t, err)
	require.NotEmpty(t, read.Contents)
	require.Equal(t, "text/markdown", read.Contents[0].MIMEType)
	require.Contains(t, read.Contents[0].Text, "Voting Guide")
}

func TestMCP_CastVote(t *testing.T) {
	ts := testserver.New(t)
	manager := ts.Register(t, "Manager", auth.RoleProjectManager)
	voter := ts.Register(t, "Voter", auth.RoleVoter)
	projectID := ts.CreateActiveProject(t, manager, "Skate park")

	s := newMCPSession(t, ts, voter)

	var listed struct {
		Projects []struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"projects"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "list_projects", nil), &listed))
	require.Len(t, listed.Projects, 1)
	require.Equal(t, "active", listed.Projects[0].Status)

	var cast struct {
		Vote struct {
			ProjectID   string `json:"project_id"`
			VoteHash    string `json:"vote_hash"`
			LedgerTxRef string `json:"ledger_tx_ref"`
		} `json:"vote"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "cast_vote", map[string]any{"project_id": projectID}), &cast))
	require.Equal(t, projectID, cast.Vote.ProjectID)
	require.Len(t, cast.Vote.VoteHash, 64)
	require.NotEmpty(t, cast.Vote.LedgerTxRef)

	again := s.call(t, "cast_vote", map[string]any{"project_id": projectID})
	require.True(t, again.IsError)
	require.Contains(t, toolText(again), "DUPLICATE_VOTE")

	var mine struct {
		Votes []json.RawMessage `json:"votes"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "list_my_votes", nil), &mine))
	require.Len(t, mine.Votes, 1)

	forbidden := s.call(t, "list_project_votes", map[string]any{"project_id": projectID})
	require.True(t, forbidden.IsError)
	require.Contains(t, toolText(forbidden), "FORBIDDEN")

	var project struct {
		Project struct {
			TotalVotes int `json:"total_votes"`
		} `json:"project"`
	}
	require.NoError(t, json.Unmarshal(s.callTool(t, "get_project", map[string]any{"id": projectID}), &project))
	require.Equal(t, 1, project.Project.TotalVotes)
}

func TestMCP_RequiresToken(t *testing.T) {
	ts := testserver.New(t)

	resp, err := http.Post(ts.Server.URL+"/mcp", "application/json", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
