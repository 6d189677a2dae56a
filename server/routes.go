package server

import (
	"net/http"

	"github.com/untools/auth-gateway/proxy"
)

func (s *Server) initRoutes() {
	api := s.APIMiddleware()

	// LOGIN / LOGOUT
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), api...))
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), api...))

	// REGISTRATION + EMAIL VERIFICATION
	s.RegisterRouteHandler("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteAuthSendOTP, ChainMiddleware(s.SendOTPHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteAuthVerifyOTP, ChainMiddleware(s.VerifyOTPHandler(), api...))

	// PASSWORD RESET
	s.RegisterRouteHandler("POST "+RouteAuthForgotPassword, ChainMiddleware(s.ForgotPasswordHandler(), api...))
	s.RegisterRouteHandler("POST "+RouteAuthResetPassword, ChainMiddleware(s.ResetPasswordHandler(), api...))

	// GOOGLE OAUTH
	s.RegisterRouteHandler("GET "+RouteAuthGoogle, ChainMiddleware(s.GoogleCallbackHandler(), api...))
	s.RegisterRouteHandler("GET "+RouteAuthGoogleURL, ChainMiddleware(s.GoogleURLHandler(), api...))

	// ACCOUNT
	s.RegisterRouteHandler("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), api...))
	s.RegisterRouteHandler("PUT "+RouteAuthMe, ChainMiddleware(s.UpdateMeHandler(), api...))
	s.RegisterRouteHandler("DELETE "+RouteAuthMe, ChainMiddleware(s.DeleteMeHandler(), api...))
	s.RegisterRouteHandler("GET "+RouteUsers, ChainMiddleware(s.UsersListHandler(), api...))
	s.RegisterRouteHandler("GET "+RouteUserByID, ChainMiddleware(s.UserHandler(), api...))

	// Typed forwarder: everything under /server/ goes to the backend API.
	s.RegisterRouteHandler(proxy.MountPath, proxy.NewHandler(s.config, s.sessions, s.refresher))

	// Generic forwarder: caller-designated target.
	s.RegisterRouteHandler(RouteProxyGeneric, proxy.NewGenericHandler(&http.Client{Timeout: s.config.GetUpstreamTimeout()}))
}
