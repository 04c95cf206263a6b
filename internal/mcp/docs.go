package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `tally runs community project votes. Every vote is hashed, recorded on a ledger and counted exactly once.

Core concepts:
- Project: proposed by a project manager. Status moves pending -> active -> completed, or to cancelled.
- Vote: one per voter per project, only while the project is active. Each vote carries a tamper-evident hash and a ledger transaction reference.

Workflow:
1) Call list_projects to find active projects.
2) Call get_project to read the details and current total_votes.
3) Call cast_vote with project_id. A second vote for the same project returns DUPLICATE_VOTE.
4) Call list_my_votes to review the votes you have cast.

Errors:
- LEDGER_UNAVAILABLE means the vote was not counted. Retrying is safe.
- PROJECT_NOT_ACTIVE means voting is closed or has not opened.

Docs: tally://guide/voting
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "tally://guide/voting",
		Name:        "voting_guide",
		Title:       "tally voting guide",
		Description: "How voting works: eligibility, vote hashes, ledger recording and error codes.",
		Content: `# tally: Voting Guide

## Who can do what

- Voters: browse projects, cast one vote per active project, list their own votes.
- Project managers: everything voters can, plus create projects, move their own projects through the lifecycle and list the votes on them.
- Admins: everything, for every project.

## Project lifecycle

| From    | To                    |
|---------|-----------------------|
| pending | active, cancelled     |
| active  | completed, cancelled  |

Completed and cancelled are final. Votes are accepted only while a project is active.

## What happens when you vote

1. Your vote slot for the project is claimed. Concurrent attempts for the same slot fail with ` + "`DUPLICATE_VOTE`" + `.
2. A SHA-256 hash is computed over your user id, the project id, the cast time and a random nonce.
3. The hash is recorded on the ledger. The returned transaction reference is stored with the vote.
4. The vote is stored and the project's ` + "`total_votes`" + ` is incremented in the same transaction.

A vote shows up in ` + "`list_my_votes`" + ` only after all four steps succeed.

## Error codes

- ` + "`PROJECT_NOT_FOUND`" + `: unknown project id.
- ` + "`PROJECT_NOT_ACTIVE`" + `: the project is pending, completed or cancelled.
- ` + "`DUPLICATE_VOTE`" + `: you already voted for this project.
- ` + "`LEDGER_UNAVAILABLE`" + `: the ledger could not be reached. Nothing was counted; retry later.
- ` + "`LEDGER_REJECTED`" + `: the ledger refused the vote. Nothing was counted.
- ` + "`FORBIDDEN`" + `: listing a project's votes needs the project manager or admin role.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
