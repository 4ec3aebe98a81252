package middleware

import (
	"net/http"
	"strings"
)

// AuthCookie holds "true" once the viewer has logged in.
const AuthCookie = "authenticated"

// AuthMiddleware lets through requests carrying the auth cookie. Others are
// redirected to /login, or get 401 when they look like API calls.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookie, err := r.Cookie(AuthCookie)
		if err != nil || cookie.Value != "true" {
			if strings.HasPrefix(r.URL.Path, "/api/") ||
				r.Header.Get("X-Requested-With") == "XMLHttpRequest" ||
				r.Header.Get("Content-Type") == "application/json" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isPublic(path string) bool {
	return path == "/login" ||
		path == "/auth/login" ||
		path == "/health" ||
		strings.HasPrefix(path, "/static/")
}
