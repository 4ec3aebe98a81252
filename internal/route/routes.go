package route

import (
	"net/http"
	"os"
	"path/filepath"
	"teachablecam/internal/config"
	"teachablecam/internal/handler"
	"teachablecam/internal/logger"
	"teachablecam/internal/middleware"
	"teachablecam/internal/repository"
	"teachablecam/internal/services/classifier"
	"teachablecam/internal/services/labels"
	"teachablecam/internal/services/websocket"
)

// Deps are the services the HTTP surface exposes. SnapshotRepo may be nil.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	Hub          *websocket.HubService
	Controller   *labels.Controller
	Classifier   *classifier.Adapter
	SnapshotRepo repository.SnapshotRepository
}

// dynamicHTMLHandler serves /path as <static>/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path

		if path == "/" {
			path = "/index"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(path)+".html")

		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, filePath)
	}
}

// SetupRoutes registers static files, the viewer socket and the API. The mux
// is wrapped with the authentication middleware only when a password is set.
func SetupRoutes(d Deps) http.Handler {
	cfg, logger := d.Config, d.Logger
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir))))

	// API endpoints
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(d.Hub, d.Controller, logger))
	mux.HandleFunc("/api/state", handler.StateHandler(d.Controller))
	mux.HandleFunc("/api/examples/clear", handler.ClearExamplesHandler(d.Classifier, d.Controller, logger))
	mux.HandleFunc("/health", handler.HealthHandler)

	if d.SnapshotRepo != nil {
		mux.HandleFunc("/api/snapshots", handler.GetSnapshotsHandler(d.SnapshotRepo, logger))
		mux.HandleFunc("/api/snapshots/view", handler.ViewSnapshotHandler(cfg))
	}

	// Log endpoints: /logs/<level> and /logs/<level>/clear
	mux.HandleFunc("/logs/", handler.LogsHandler(cfg, logger))

	// Auth endpoints
	if cfg.Password != "" {
		mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
		mux.HandleFunc("/auth/logout", handler.LogoutHandler)
	}

	// Automatic HTML handler mapping for example: /login -> /static/login.html
	mux.HandleFunc("/", dynamicHTMLHandler(cfg.StaticDir))

	if cfg.Password == "" {
		return mux
	}
	return middleware.AuthMiddleware(mux)
}
