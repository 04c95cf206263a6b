package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/vote"
	"github.com/rpggio/tally/internal/testserver"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func decodeVote(t *testing.T, body map[string]any) vote.Vote {
	t.Helper()
	raw, err := json.Marshal(body["vote"])
	require.NoError(t, err)
	var v vote.Vote
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func totalVotes(t *testing.T, ts *testserver.TestServer, token, projectID string) float64 {
	t.Helper()
	status, body := ts.Do(t, http.MethodGet, "/api/projects/"+projectID, token, nil)
	require.Equal(t, http.StatusOK, status)
	return body["project"].(map[string]any)["total_votes"].(float64)
}

func TestVotingLifecycle(t *testing.T) {
	ts := testserver.New(t)

	manager := ts.Register(t, "Pat Manager", auth.RoleProjectManager)
	alice := ts.Register(t, "Alice", auth.RoleVoter)
	bob := ts.Register(t, "Bob", auth.RoleVoter)

	projectID := ts.CreateActiveProject(t, manager, "Community garden")

	status, body := ts.Do(t, http.MethodPost, "/api/voting/projects/"+projectID+"/vote", alice, nil)
	require.Equal(t, http.StatusCreated, status, "%v", body)
	cast := decodeVote(t, body)
	require.NotEmpty(t, cast.LedgerTxRef)
	require.True(t, vote.Verify(&cast), "returned vote must verify against its hash")

	status, body = ts.Do(t, http.MethodPost, "/api/voting/projects/"+projectID+"/vote", alice, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, vote.ErrDuplicateVote.Error(), body["error"])
	require.EqualValues(t, 1, totalVotes(t, ts, alice, projectID))

	status, body = ts.Do(t, http.MethodGet, "/api/voting/my-votes", alice, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["votes"], 1)

	status, _ = ts.Do(t, http.MethodGet, "/api/voting/projects/"+projectID+"/votes", alice, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, body = ts.Do(t, http.MethodGet, "/api/voting/projects/"+projectID+"/votes", manager, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["votes"], 1)

	status, _ = ts.Do(t, http.MethodPut, "/api/projects/"+projectID, manager, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, status)

	status, body = ts.Do(t, http.MethodPost, "/api/voting/projects/"+projectID+"/vote", bob, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body["error"], "not active")

	status, _ = ts.Do(t, http.MethodPut, "/api/projects/"+projectID, manager, map[string]string{"status": "active"})
	require.Equal(t, http.StatusBadRequest, status, "completed is terminal")

	require.NoError(t, ts.Chain.Verify())
	require.Equal(t, 1, int(totalVotes(t, ts, manager, projectID)))
}

func TestAdminManagesAnyProject(t *testing.T) {
	ts := testserver.New(t)

	manager := ts.Register(t, "Owner", auth.RoleProjectManager)
	other := ts.Register(t, "Other Manager", auth.RoleProjectManager)
	admin := ts.Login(t, testserver.AdminEmail, testserver.AdminPassword)

	projectID := ts.CreateActiveProject(t, manager, "Library")

	status, _ := ts.Do(t, http.MethodPut, "/api/projects/"+projectID, other, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusForbidden, status)

	status, _ = ts.Do(t, http.MethodPut, "/api/projects/"+projectID, admin, map[string]string{"status": "cancelled"})
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.Do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Sneaky", "email": "sneaky@tally.test", "password": "password-sneaky", "role": "admin",
	})
	require.Equal(t, http.StatusBadRequest, status)
}

func TestLedgerOutage(t *testing.T) {
	ts := testserver.New(t)

	manager := ts.Register(t, "Manager", auth.RoleProjectManager)
	voter := ts.Register(t, "Voter", auth.RoleVoter)
	projectID := ts.CreateActiveProject(t, manager, "Bike lanes")

	ts.Ledger.SetDown(true)

	status, _ := ts.Do(t, http.MethodPost, "/api/voting/projects/"+projectID+"/vote", voter, nil)
	require.Equal(t, http.StatusServiceUnavailable, status)

	status, _ = ts.Do(t, http.MethodPost, "/api/projects", manager, map[string]any{
		"title": "Blocked", "start_date": "2026-01-01T00:00:00Z", "end_date": "2026-02-01T00:00:00Z",
	})
	require.Equal(t, http.StatusServiceUnavailable, status)

	status, body := ts.Do(t, http.MethodGet, "/api/voting/my-votes", voter, nil)
	require.Equal(t, http.StatusOK, status)
	require.Empty(t, body["votes"])
	require.EqualValues(t, 0, totalVotes(t, ts, voter, projectID))

	ts.Ledger.SetDown(false)

	status, body = ts.Do(t, http.MethodPost, "/api/voting/projects/"+projectID+"/vote", voter, nil)
	require.Equal(t, http.StatusCreated, status, "%v", body)
	require.EqualValues(t, 1, totalVotes(t, ts, voter, projectID))
	require.Equal(t, 1, ts.Chain.ProjectVotes(projectLedgerRef(t, ts, voter, projectID)))
}

func TestConcurrentVotes(t *testing.T) {
	ts := testserver.New(t)

	manager := ts.Register(t, "Manager", auth.RoleProjectManager)
	projectID := ts.CreateActiveProject(t, manager, "Playground")

	const voters = 8
	tokens := make([]string, voters)
	for i := range tokens {
		tokens[i] = ts.Register(t, fmt.Sprintf("Voter %d", i), auth.RoleVoter)
	}

	var mu sync.Mutex
	statuses := map[int]int{}
	var g errgroup.Group
	for _, token := range tokens {
		for range 3 {
			g.Go(func() error {
				status, err := castVote(ts, token, projectID)
				if err != nil {
					return err
				}
				mu.Lock()
				statuses[status]++
				mu.Unlock()
				return nil
			})
		}
	}
	require.NoError(t, g.Wait())

	require.Equal(t, voters, statuses[http.StatusCreated])
	require.Equal(t, 2*voters, statuses[http.StatusBadRequest])
	require.EqualValues(t, voters, totalVotes(t, ts, manager, projectID))
	require.NoError(t, ts.Chain.Verify())
}

func castVote(ts *testserver.TestServer, token, projectID string) (int, error) {
	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+"/api/voting/projects/"+projectID+"/vote", nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

func projectLedgerRef(t *testing.T, ts *testserver.TestServer, token, projectID string) string {
	t.Helper()
	_, body := ts.Do(t, http.MethodGet, "/api/projects/"+projectID, token, nil)
	return body["project"].(map[string]any)["ledger_ref"].(string)
}
