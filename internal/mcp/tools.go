package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolset binds tool handlers to the domain services. Handlers return
// their payload as JSON text content.
type toolset struct {
	projects ProjectService
	votes    VoteService
}

func registerTools(server *sdkmcp.Server, t *toolset) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List all projects, newest first, with status and vote totals",
	}, t.listProjects)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_project",
		Description: "Get a single project including its manager and total votes",
	}, t.getProject)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "cast_vote",
		Description: "Cast the caller's single vote for an active project",
	}, t.castVote)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_my_votes",
		Description: "List the caller's votes, newest first",
	}, t.listMyVotes)
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_project_votes",
		Description: "List all votes for a project (project managers and admins only)",
	}, t.listProjectVotes)
}

func (t *toolset) listProjects(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListProjectsParams) (*sdkmcp.CallToolResult, any, error) {
	if err := caller(ctx).Require(); err != nil {
		return nil, nil, toolError(err)
	}
	projects, err := t.projects.List(ctx)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return textResult(ProjectListResponse{Projects: projects})
}

func (t *toolset) getProject(ctx context.Context, _ *sdkmcp.CallToolRequest, in GetProjectParams) (*sdkmcp.CallToolResult, any, error) {
	if err := caller(ctx).Require(); err != nil {
		return nil, nil, toolError(err)
	}
	proj, err := t.projects.Get(ctx, in.ID)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return textResult(ProjectResponse{Project: proj})
}

func (t *toolset) castVote(ctx context.Context, _ *sdkmcp.CallToolRequest, in CastVoteParams) (*sdkmcp.CallToolResult, any, error) {
	v, err := t.votes.Cast(ctx, caller(ctx), in.ProjectID)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return textResult(VoteResponse{Vote: v})
}

func (t *toolset) listMyVotes(ctx context.Context, _ *sdkmcp.CallToolRequest, _ ListMyVotesParams) (*sdkmcp.CallToolResult, any, error) {
	votes, err := t.votes.ListForVoter(ctx, caller(ctx))
	if err != nil {
		return nil, nil, toolError(err)
	}
	return textResult(VoteListResponse{Votes: votes})
}

func (t *toolset) listProjectVotes(ctx context.Context, _ *sdkmcp.CallToolRequest, in ListProjectVotesParams) (*sdkmcp.CallToolResult, any, error) {
	votes, err := t.votes.ListForProject(ctx, caller(ctx), in.ProjectID)
	if err != nil {
		return nil, nil, toolError(err)
	}
	return textResult(VoteListResponse{Votes: votes})
}

func textResult(payload any) (*sdkmcp.CallToolResult, any, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("encode tool result: %w", err)
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil, nil
}
