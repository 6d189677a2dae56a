package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/untools/auth-gateway/auth"
	"github.com/untools/auth-gateway/internal/utils"
)

const (
	defaultPage  = 1
	defaultLimit = 20
)

// MeHandler returns the caller's fresh profile from the backend and
// re-caches it, so the snapshot cookie never drifts far from the source.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions.FromRequest(r) == nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		user, err := s.authSvc.Me(r.Context(), w, r)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		s.userStore.Set(user)
		if err := s.sessions.SetUserSnapshot(w, user); err != nil {
			log.Warn().Err(err).Msg("failed to refresh user snapshot cookie")
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
	}
}

// UpdateMeHandler updates profile fields. Only the fields present in the
// request body are sent upstream.
func (s *Server) UpdateMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := s.sessions.FromRequest(r)
		if claims == nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		var body struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			Picture   string `json:"picture"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var input auth.UpdateUserInput
		if body.FirstName != "" {
			input.FirstName = utils.Ptr(body.FirstName)
		}
		if body.LastName != "" {
			input.LastName = utils.Ptr(body.LastName)
		}
		if body.Picture != "" {
			input.Picture = utils.Ptr(body.Picture)
		}

		user, err := s.authSvc.UpdateUser(r.Context(), w, r, claims.ID, input)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		s.userStore.Set(user)
		if err := s.sessions.SetUserSnapshot(w, user); err != nil {
			log.Warn().Err(err).Msg("failed to refresh user snapshot cookie")
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
	}
}

// DeleteMeHandler removes the account at the backend and clears all local
// state, same as a logout.
func (s *Server) DeleteMeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := s.sessions.FromRequest(r)
		if claims == nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		deleted, err := s.authSvc.DeleteUser(r.Context(), w, r, claims.ID)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if !deleted {
			respondError(w, http.StatusBadRequest, "account could not be deleted")
			return
		}

		s.sessions.Delete()(w)
		s.userStore.Clear()
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *Server) UsersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions.FromRequest(r) == nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		page := queryInt(r, "page", defaultPage)
		limit := queryInt(r, "limit", defaultLimit)

		result, err := s.authSvc.ListUsers(r.Context(), w, r, page, limit)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, result)
	}
}

func (s *Server) UserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions.FromRequest(r) == nil {
			respondError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		id := r.PathValue("id")
		if id == "" {
			respondError(w, http.StatusBadRequest, "user id is required")
			return
		}

		user, err := s.authSvc.GetUser(r.Context(), w, r, id)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		if user == nil {
			respondError(w, http.StatusNotFound, "user not found")
			return
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
	}
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
