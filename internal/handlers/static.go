package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/diegcard-arep/arep-microservicios/pkg/config"
)

// StaticHandler serves the bundled single-page frontend. All non-API
// paths fall through to index.html so client-side routing works on a
// hard refresh.
//
// In development there is no bundle; the handler instead redirects the
// browser to the Vite dev server, which proxies API calls back here.
type StaticHandler struct {
	staticDir    string
	devAppURL    string
	isProduction bool
}

// NewStaticHandler creates the static handler from server
// configuration.
//
// Example:
//
//	static := handlers.NewStaticHandler(&cfg.Server)
//	r.NotFound(static.Serve)
func NewStaticHandler(cfg *config.ServerConfig) *StaticHandler {
	return &StaticHandler{
		staticDir:    cfg.StaticDir,
		devAppURL:    cfg.DevAppURL,
		isProduction: cfg.IsProduction(),
	}
}

// Serve handles every path no API route claimed.
//
// API paths that reach this handler are genuinely unknown and get a
// 404. Everything else is treated as a frontend route: in production
// it is served from the static directory (falling back to index.html),
// in development it is redirected to the dev server.
func (h *StaticHandler) Serve(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api") {
		http.NotFound(w, r)
		return
	}

	if !h.isProduction {
		http.Redirect(w, r, h.devAppURL+r.URL.Path, http.StatusFound)
		return
	}

	// Serve the asset if it exists, otherwise the SPA entry point.
	requested := filepath.Join(h.staticDir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(requested); err == nil && !info.IsDir() {
		http.ServeFile(w, r, requested)
		return
	}

	index := filepath.Join(h.staticDir, "index.html")
	if _, err := os.Stat(index); err != nil {
		log.Error().Err(err).Str("dir", h.staticDir).Msg("Frontend bundle missing")
		http.Error(w, "Frontend not available", http.StatusInternalServerError)
		return
	}
	http.ServeFile(w, r, index)
}
