package transport

import (
	"net/http"

	"github.com/rpggio/tally/internal/auth"
	"github.com/rpggio/tally/internal/domain/user"
)

type registerRequest struct {
	Name     string    `json:"name"`
	Email    string    `json:"email"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	u, err := s.users.Register(r.Context(), user.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, "User registered successfully", map[string]any{"user": u})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err)
		return
	}

	u, token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Login successful", map[string]any{"user": u, "token": token})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), identity(r).UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, "Profile retrieved", map[string]any{"user": u})
}
