package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"github.com/untools/auth-gateway/auth"
	"github.com/untools/auth-gateway/gqlclient"
	"github.com/untools/auth-gateway/internal/config"
	"github.com/untools/auth-gateway/session"
	"github.com/untools/auth-gateway/token/refresh"
	"github.com/untools/auth-gateway/users"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "production")
	mux    *http.ServeMux
	routes []string
	config config.Config

	sessions  *session.Service
	authSvc   *auth.Service
	refresher *refresh.Coordinator
	userStore users.Store
	google    *GoogleOAuth
}

func New(cfg config.Config) (*Server, error) {
	sessions, err := session.New(
		cfg.GetSessionSecret(),
		cfg.GetSessionTTL(),
		cfg.GetAccessTokenTTL(),
		cfg.GetRefreshTokenTTL(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Server.New] creating session service")
	}

	client := gqlclient.New(cfg.GetGraphQLURL(), cfg.GetAPIKey(), gqlclient.WithTimeout(cfg.GetUpstreamTimeout()))
	refresher := refresh.New(client, sessions)

	authSvc, err := auth.NewService(client, sessions, refresher)
	if err != nil {
		return nil, errors.Wrap(err, "[Server.New] creating auth service")
	}

	s := &Server{
		mux:       http.NewServeMux(),
		config:    cfg,
		sessions:  sessions,
		authSvc:   authSvc,
		refresher: refresher,
		userStore: users.NewInMemoryStore(),
	}
	s.env = cfg.GetEnv()
	s.google = NewGoogleOAuth(cfg)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

// ServeHTTP runs the route guard for page paths before dispatching to the
// mux. API and proxy paths are guard-exempt.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !guardExempt(r.URL.Path) {
		if done := s.guard(w, r); done {
			return
		}
	}
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}

