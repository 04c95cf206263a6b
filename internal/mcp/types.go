package mcp

import (
	"github.com/rpggio/tally/internal/domain/project"
	"github.com/rpggio/tally/internal/domain/vote"
)

type ListProjectsParams struct{}

type GetProjectParams struct {
	ID string `json:"id" jsonschema:"project identifier"`
}

type CastVoteParams struct {
	ProjectID string `json:"project_id" jsonschema:"identifier of the active project to vote for"`
}

type ListMyVotesParams struct{}

type ListProjectVotesParams struct {
	ProjectID string `json:"project_id" jsonschema:"project identifier"`
}

type ProjectListResponse struct {
	Projects []project.Project `json:"projects"`
}

type ProjectResponse struct {
	Project *project.Project `json:"project"`
}

type VoteResponse struct {
	Vote *vote.Vote `json:"vote"`
}

type VoteListResponse struct {
	Votes []vote.Vote `json:"votes"`
}
