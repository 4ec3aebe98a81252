package handler

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"teachablecam/internal/config"
	"teachablecam/internal/logger"
	"teachablecam/internal/middleware"
)

const sessionMaxAge = 30 * 24 * 60 * 60

// LoginHandler checks the posted password and sets the auth cookie. On
// success it redirects to "next" when that is a local path, otherwise to /.
func LoginHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if cfg.Password == "" {
			http.NotFound(w, r)
			return
		}

		password := r.FormValue("password")
		if subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Password)) != 1 {
			logger.Warning("Failed login from %s", r.RemoteAddr)
			http.Error(w, "Invalid password", http.StatusUnauthorized)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.AuthCookie,
			Value:    "true",
			Path:     "/",
			MaxAge:   sessionMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		logger.Info("Viewer logged in from %s", r.RemoteAddr)
		http.Redirect(w, r, localTarget(r.FormValue("next")), http.StatusSeeOther)
	}
}

// localTarget keeps redirects on this host.
func localTarget(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	return next
}

// LogoutHandler clears the auth cookie and returns to the login page.
func LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   middleware.AuthCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
