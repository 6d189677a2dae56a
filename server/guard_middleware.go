package server

import (
	"net/http"
	"path"
	"strings"

	"github.com/untools/auth-gateway/internal/routes"
	"github.com/untools/auth-gateway/proxy"
)

// staticExtensions lists asset suffixes the guard never inspects.
var staticExtensions = map[string]struct{}{
	".css":  {},
	".js":   {},
	".ico":  {},
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".svg":  {},
	".webp": {},
	".map":  {},
}

// guardExempt reports whether the guard should skip a path entirely.
// API routes and both forwarder mounts manage their own auth handling.
func guardExempt(p string) bool {
	if strings.HasPrefix(p, "/api/") || strings.HasPrefix(p, proxy.MountPath) {
		return true
	}
	if p == "/favicon.ico" || p == "/robots.txt" || p == "/sitemap.xml" {
		return true
	}
	_, ok := staticExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// guard enforces the page-level access rules. It returns true when it has
// written a redirect and the request is finished.
func (s *Server) guard(w http.ResponseWriter, r *http.Request) bool {
	claims := s.sessions.FromRequest(r)
	authenticated := claims != nil

	switch {
	case routes.IsProtected(r.URL.Path) && !authenticated:
		http.Redirect(w, r, RouteLoginPage, http.StatusSeeOther)
		return true
	case routes.IsAuth(r.URL.Path) && authenticated:
		http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
		return true
	}

	// Downstream handlers read the requested path from the request headers.
	r.Header.Set("X-Pathname", r.URL.Path)
	return false
}
