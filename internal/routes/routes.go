// Package routes classifies request paths for the route guard. The pattern
// sets mirror the application's page structure: everything under /dashboard
// requires a session, everything under /auth is for anonymous visitors, with
// an explicit exceptions list so /auth/logout stays reachable while logged in.
package routes

// Route pattern sets.
var (
	ProtectedPatterns = []string{"/dashboard"}
	AuthPatterns      = []string{"/auth"}
	// AuthExceptions don't follow the usual auth pattern rules.
	AuthExceptions = []string{"/auth/logout"}
	PublicPatterns = []string{"/", "/blog", "/about"}
)

// MatchesPattern reports whether path equals a pattern or lives under it.
func MatchesPattern(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if path == pattern || hasPrefixSegment(path, pattern) {
			return true
		}
	}
	return false
}

func hasPrefixSegment(path, pattern string) bool {
	return len(path) > len(pattern)+1 && path[:len(pattern)+1] == pattern+"/"
}

// IsProtected reports whether a path requires an authenticated session.
func IsProtected(path string) bool {
	return MatchesPattern(path, ProtectedPatterns)
}

// IsAuth reports whether a path belongs to the anonymous auth pages,
// respecting the exceptions list.
func IsAuth(path string) bool {
	for _, exception := range AuthExceptions {
		if path == exception {
			return false
		}
	}
	return MatchesPattern(path, AuthPatterns)
}

// IsPublic reports whether a path is reachable without a session.
func IsPublic(path string) bool {
	for _, exception := range AuthExceptions {
		if path == exception {
			return true
		}
	}
	return MatchesPattern(path, PublicPatterns)
}
