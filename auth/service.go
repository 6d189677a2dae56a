// Package auth exposes the backend API's authentication and user operations
// as typed calls. Anonymous operations go straight to the GraphQL client;
// authenticated operations attach the caller's access token and transparently
// refresh-and-retry once when the backend reports an auth failure.
package auth

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/untools/auth-gateway/gqlclient"
	gwerrors "github.com/untools/auth-gateway/internal/errors"
	"github.com/untools/auth-gateway/session"
	"github.com/untools/auth-gateway/token/refresh"
	"github.com/untools/auth-gateway/users"
)

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterInput struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type SendOTPInput struct {
	Email string `json:"email"`
}

type VerifyOTPInput struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type UpdateUserInput struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Picture   *string `json:"picture,omitempty"`
}

// AuthPayload is the backend's response to login/googleAuth.
type AuthPayload struct {
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
	User         *users.User `json:"user"`
}

// Service wraps the GraphQL client with the gateway's auth operations.
type Service struct {
	client    *gqlclient.Client
	sessions  *session.Service
	refresher *refresh.Coordinator
}

func NewService(client *gqlclient.Client, sessions *session.Service, refresher *refresh.Coordinator) (*Service, error) {
	if client == nil {
		return nil, errors.New("[auth.NewService] client is required")
	}
	if sessions == nil {
		return nil, errors.New("[auth.NewService] sessions is required")
	}
	if refresher == nil {
		return nil, errors.New("[auth.NewService] refresher is required")
	}
	return &Service{client: client, sessions: sessions, refresher: refresher}, nil
}

// Login authenticates with email/password and returns the backend tokens
// plus user snapshot. Session creation is the caller's responsibility.
func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthPayload, error) {
	var data struct {
		Login AuthPayload `json:"login"`
	}
	err := s.client.Execute(ctx, gqlclient.Request{
		Query:     loginMutation,
		Variables: map[string]interface{}{"input": input},
	}, "", &data)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Login]")
	}
	return &data.Login, nil
}

// Register creates a new, unverified account.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*users.User, error) {
	var data struct {
		Register struct {
			User *users.User `json:"user"`
		} `json:"register"`
	}
	err := s.client.Execute(ctx, gqlclient.Request{
		Query:     registerMutation,
		Variables: map[string]interface{}{"input": input},
	}, "", &data)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Register]")
	}
	return data.Register.User, nil
}

// GoogleAuth exchanges a Google authorization code at the backend and
// returns the resulting tokens and user.
func (s *Service) GoogleAuth(ctx context.Context, code, redirectURL string) (*AuthPayload, error) {
	var data struct {
		GoogleAuth AuthPayload `json:"googleAuth"`
	}
	err := s.client.Execute(ctx, gqlclient.Request{
		Query: googleAuthMutation,
		Variables: map[string]interface{}{
			"code":        code,
			"redirectUrl": redirectURL,
		},
	}, "", &data)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.GoogleAuth]")
	}
	return &data.GoogleAuth, nil
}

// RequestPasswordReset asks the backend to mail a reset link.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (bool, error) {
	var data struct {
		RequestPasswordReset bool `json:"requestPasswordReset"`
	}
	err := s.client.Execute(ctx, gqlclient.Request{
		Query:     requestPasswordResetMutation,
		Variables: map[string]interface{}{"email": email},
	}, "", &data)
	if err != nil {
		return false, errors.Wrap(err, "[Service.RequestPasswordReset]")
	}
	return data.RequestPasswordReset, nil
}

// ResetPassword completes a password reset with the emailed token.
func (s *Service) ResetPassword(ctx context.Context, token, password string) (bool, error) {
	var data struct {
		ResetPassword bool `json:"resetPassword"`
	}
	err := s.client.Execute(ctx, gqlclient.Request{
		Query: resetPasswordMutation,
		Variables: map[string]interface{}{
			"token":    token,
			"password": password,
		},
	}, "", &data)
	if err != nil {
		return false, errors.Wrap(err, "[Service.ResetPassword]")
	}
	return data.ResetPassword, nil
}

// SendOTP asks the backend to send a verification code.
func (s *Service) SendOTP(ctx context.Context, input SendOTPInput) (string, error) {
	var data struct {
		SendOTP string `json:"sendOTP"`
	}
	err := s.client.Execute(ctx, gqlclient.Request{
		Query:     sendOTPMutation,
		Variables: map[string]interface{}{"input": input},
	}, "", &data)
	if err != nil {
		return "", errors.Wrap(err, "[Service.SendOTP]")
	}
	return data.SendOTP, nil
}

// VerifyOTP confirms an emailed verification code.
func (s *Service) VerifyOTP(ctx context.Context, input VerifyOTPInput) (bool, error) {
	var data struct {
		VerifyOTP bool `json:"verifyOTP"`
	}
	err := s.client.Execute(ctx, gqlclient.Request{
		Query:     verifyOTPMutation,
		Variables: map[string]interface{}{"input": input},
	}, "", &data)
	if err != nil {
		return false, errors.Wrap(err, "[Service.VerifyOTP]")
	}
	return data.VerifyOTP, nil
}

// Me returns the authenticated caller's own snapshot.
func (s *Service) Me(ctx context.Context, w http.ResponseWriter, r *http.Request) (*users.User, error) {
	var data struct {
		Me *users.User `json:"me"`
	}
	err := s.executeAuthed(ctx, w, r, gqlclient.Request{Query: meQuery}, &data)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Me]")
	}
	return data.Me, nil
}

// GetUser fetches another user by ID.
func (s *Service) GetUser(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) (*users.User, error) {
	var data struct {
		User *users.User `json:"user"`
	}
	err := s.executeAuthed(ctx, w, r, gqlclient.Request{
		Query:     userQuery,
		Variables: map[string]interface{}{"id": id},
	}, &data)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.GetUser]")
	}
	return data.User, nil
}

// ListUsers fetches one page of users.
func (s *Service) ListUsers(ctx context.Context, w http.ResponseWriter, r *http.Request, page, limit int) (*users.Page, error) {
	var data struct {
		Users users.Page `json:"users"`
	}
	err := s.executeAuthed(ctx, w, r, gqlclient.Request{
		Query: usersQuery,
		Variables: map[string]interface{}{
			"page":  page,
			"limit": limit,
		},
	}, &data)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.ListUsers]")
	}
	return &data.Users, nil
}

// UpdateUser updates profile fields and returns the fresh snapshot.
func (s *Service) UpdateUser(ctx context.Context, w http.ResponseWriter, r *http.Request, id string, input UpdateUserInput) (*users.User, error) {
	var data struct {
		UpdateUser *users.User `json:"updateUser"`
	}
	err := s.executeAuthed(ctx, w, r, gqlclient.Request{
		Query: updateUserMutation,
		Variables: map[string]interface{}{
			"id":    id,
			"input": input,
		},
	}, &data)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.UpdateUser]")
	}
	return data.UpdateUser, nil
}

// DeleteUser removes the account.
func (s *Service) DeleteUser(ctx context.Context, w http.ResponseWriter, r *http.Request, id string) (bool, error) {
	var data struct {
		DeleteUser bool `json:"deleteUser"`
	}
	err := s.executeAuthed(ctx, w, r, gqlclient.Request{
		Query:     deleteUserMutation,
		Variables: map[string]interface{}{"id": id},
	}, &data)
	if err != nil {
		return false, errors.Wrap(err, "[Service.DeleteUser]")
	}
	return data.DeleteUser, nil
}

// executeAuthed runs an operation with the caller's access token. On an auth
// failure it refreshes once and retries with the new token; if the refresh
// itself is rejected because the refresh token is dead, the caller gets
// ErrAuthenticationFailed and should force a logout.
func (s *Service) executeAuthed(ctx context.Context, w http.ResponseWriter, r *http.Request, req gqlclient.Request, out interface{}) error {
	err := s.client.Execute(ctx, req, s.sessions.AccessToken(r), out)
	if err == nil || !gqlclient.IsAuthError(err) {
		return err
	}

	log.Warn().Msg("auth error detected, attempting token refresh")

	result := s.refresher.Refresh(ctx, w, r)
	if !result.Success {
		log.Error().Str("error", result.Error).Msg("token refresh failed")
		if result.ShouldForceLogout() {
			return gwerrors.ErrAuthenticationFailed
		}
		return err
	}

	return s.client.Execute(ctx, req, result.AccessToken, out)
}
