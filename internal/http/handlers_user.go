package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"moneypall/internal/auth"
	"moneypall/internal/core"
)

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.Profile(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, keyDetail, err)
		return
	}
	NewJSONResponse().Field("data", toUserResponse(u)).Write(w)
}

// handleUpdateProfile applies a partial update; absent fields are kept.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		badBody(w, r, keyDetail, err)
		return
	}

	_, err := s.auth.UpdateProfile(r.Context(), currentUser(r), auth.ProfileInput{
		FirstName: p.Optional("first_name"),
		LastName:  p.Optional("last_name"),
		Phone:     p.Optional("phone"),
	})
	if err != nil {
		writeError(w, r, keyDetail, err)
		return
	}
	Detail(http.StatusOK, "Profile updated.").Write(w)
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.auth.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, keyDetail, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	NewJSONResponse().Field("data", out).Write(w)
}

func (s *Server) handleUserDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, keyDetail, core.ErrUserNotFound)
		return
	}
	u, err := s.auth.GetUser(r.Context(), id)
	if err != nil {
		writeError(w, r, keyDetail, err)
		return
	}
	NewJSONResponse().Payload(toUserResponse(u)).Write(w)
}
