package handler

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"teachablecam/internal/config"
	"teachablecam/internal/logger"
)

// logFiles maps the level in /logs/<level> to its file.
var logFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// LogsHandler serves /logs/<level> (optionally ?tail=N lines) and truncates
// the file on POST /logs/<level>/clear.
func LogsHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/logs/"), "/")
		level, action, _ := strings.Cut(rest, "/")

		filename, ok := logFiles[level]
		if !ok || (action != "" && action != "clear") {
			http.NotFound(w, r)
			return
		}

		if action == "clear" {
			clearLogFile(w, r, logger, filename)
			return
		}

		tail := 0
		if raw := r.URL.Query().Get("tail"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				http.Error(w, "Invalid tail", http.StatusBadRequest)
				return
			}
			tail = n
		}
		serveLogFile(w, filepath.Join(cfg.LogDirectory, filename), tail)
	}
}

// serveLogFile writes the log as text/plain, limited to the last tail lines when tail > 0.
func serveLogFile(w http.ResponseWriter, path string, tail int) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		http.Error(w, "Log file not found: "+filepath.Base(path), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "Unable to read log", http.StatusInternalServerError)
		return
	}

	if tail > 0 {
		data = lastLines(data, tail)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

func lastLines(data []byte, n int) []byte {
	end := len(bytes.TrimRight(data, "\n"))
	start := end
	for ; n > 0 && start > 0; n-- {
		start = bytes.LastIndexByte(data[:start], '\n')
		if start < 0 {
			return data
		}
	}
	if n > 0 {
		return data
	}
	return data[start+1:]
}

func clearLogFile(w http.ResponseWriter, r *http.Request, logger *logger.Logger, filename string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := logger.CleanLogs(filename); err != nil {
		http.Error(w, "Unable to clear "+filename, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
