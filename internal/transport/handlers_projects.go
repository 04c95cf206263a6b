package transport

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/tally/internal/domain/project"
)

type createProjectRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

type updateProjectRequest struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	StartDate   *time.Time      `json:"start_date"`
	EndDate     *time.Time      `json:"end_date"`
	Status      *project.Status `json:"status"`
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Projects retrieved", map[string]any{"projects": projects})
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	proj, err := s.projects.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Project retrieved", map[string]any{"project": proj})
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	proj, err := s.projects.Create(r.Context(), identity(r), project.CreateRequest{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "Project created successfully", map[string]any{"project": proj})
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	proj, err := s.projects.Update(r.Context(), identity(r), chi.URLParam(r, "id"), project.UpdateRequest{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Project updated successfully", map[string]any{"project": proj})
}
