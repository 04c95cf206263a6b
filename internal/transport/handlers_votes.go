package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	v, err := s.votes.Cast(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "Vote cast successfully", map[string]any{"vote": v})
}

func (s *Server) handleProjectVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.votes.ListForProject(r.Context(), identity(r), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Votes retrieved", map[string]any{"votes": votes})
}

func (s *Server) handleMyVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.votes.ListForVoter(r.Context(), identity(r))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Votes retrieved", map[string]any{"votes": votes})
}
