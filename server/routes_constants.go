package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth API routes
	RouteAuthLogin          = "/api/auth/login"
	RouteAuthLogout         = "/api/auth/logout"
	RouteAuthRegister       = "/api/auth/register"
	RouteAuthSendOTP        = "/api/auth/send-otp"
	RouteAuthVerifyOTP      = "/api/auth/verify-otp"
	RouteAuthForgotPassword = "/api/auth/forgot-password"
	RouteAuthResetPassword  = "/api/auth/reset-password"

	// Google OAuth routes
	RouteAuthGoogle    = "/api/auth/google"
	RouteAuthGoogleURL = "/api/auth/google/url"

	// Account API routes
	RouteAuthMe   = "/api/auth/me"
	RouteUsers    = "/api/users"
	RouteUserByID = "/api/users/{id}"

	// Proxy mounts
	RouteProxyGeneric = "/api/proxy"

	// Page routes the guard redirects to
	RouteLoginPage   = "/auth/login"
	RouteDashboard   = "/dashboard"
	RouteAuthFailure = "/auth/failure"
)
