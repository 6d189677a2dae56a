package server

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/untools/auth-gateway/auth"
	gwerrors "github.com/untools/auth-gateway/internal/errors"
	"github.com/untools/auth-gateway/session"
)

// LoginHandler authenticates against the backend and, on success, writes the
// session, token and user-snapshot cookies in the same response.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input auth.LoginInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if input.Email == "" || input.Password == "" {
			respondError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		payload, err := s.authSvc.Login(r.Context(), input)
		if err != nil {
			log.Warn().Str("email", input.Email).Err(err).Msg("login rejected")
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		if err := s.establishSession(w, payload); err != nil {
			log.Error().Err(err).Msg("failed to establish session")
			respondError(w, http.StatusInternalServerError, "failed to create session")
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"user":    payload.User,
		})
	}
}

// LogoutHandler clears every auth cookie plus the cached user snapshot. It
// succeeds even for anonymous callers so clients can always reset state.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deleteCookies := s.sessions.Delete()
		deleteCookies(w)
		s.userStore.Clear()
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input auth.RegisterInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if input.Email == "" || input.Password == "" {
			respondError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		user, err := s.authSvc.Register(r.Context(), input)
		if err != nil {
			log.Warn().Str("email", input.Email).Err(err).Msg("registration rejected")
			respondError(w, http.StatusBadRequest, "registration failed")
			return
		}

		respondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"user":    user,
		})
	}
}

func (s *Server) SendOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input auth.SendOTPInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if input.Email == "" {
			respondError(w, http.StatusBadRequest, "email is required")
			return
		}

		otpToken, err := s.authSvc.SendOTP(r.Context(), input)
		if err != nil {
			respondError(w, http.StatusBadRequest, "failed to send verification code")
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"token":   otpToken,
		})
	}
}

func (s *Server) VerifyOTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input auth.VerifyOTPInput
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if input.Email == "" || input.OTP == "" {
			respondError(w, http.StatusBadRequest, "email and otp are required")
			return
		}

		verified, err := s.authSvc.VerifyOTP(r.Context(), input)
		if err != nil || !verified {
			respondError(w, http.StatusBadRequest, "verification failed")
			return
		}

		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *Server) ForgotPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if input.Email == "" {
			respondError(w, http.StatusBadRequest, "email is required")
			return
		}

		// Always report success so the endpoint cannot be used to probe
		// which addresses have accounts.
		if _, err := s.authSvc.RequestPasswordReset(r.Context(), input.Email); err != nil {
			log.Warn().Err(err).Msg("password reset request failed")
		}
		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *Server) ResetPasswordHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input struct {
			Token    string `json:"token"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if input.Token == "" || input.Password == "" {
			respondError(w, http.StatusBadRequest, "token and password are required")
			return
		}

		ok, err := s.authSvc.ResetPassword(r.Context(), input.Token, input.Password)
		if err != nil || !ok {
			respondError(w, http.StatusBadRequest, "reset failed")
			return
		}

		respondJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// establishSession writes the full cookie set for a fresh login and caches
// the user snapshot in memory.
func (s *Server) establishSession(w http.ResponseWriter, payload *auth.AuthPayload) error {
	err := s.sessions.Create(w, payload.User, session.Tokens{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
	})
	if err != nil {
		return err
	}
	if err := s.sessions.SetUserSnapshot(w, payload.User); err != nil {
		return err
	}
	s.userStore.Set(payload.User)
	return nil
}

// handleServiceError maps service-level failures onto HTTP responses. A dead
// refresh token produces the forced-logout shape all clients understand.
func handleServiceError(w http.ResponseWriter, err error) {
	if gwerrors.Is(err, gwerrors.ErrAuthenticationFailed) {
		respondAuthFailure(w)
		return
	}
	log.Error().Err(err).Msg("backend call failed")
	respondError(w, http.StatusBadGateway, "backend request failed")
}
