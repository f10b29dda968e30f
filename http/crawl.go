package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) registerCrawlRoutes(r chi.Router) {
	r.Post("/run", s.handleCrawlRun)
	r.Get("/status", s.handleCrawlStatus)
}

// handleCrawlRun starts a crawl cycle in the background. The cycle keeps
// running after the response is written.
func (s *Server) handleCrawlRun(w http.ResponseWriter, r *http.Request) {
	if err := s.CrawlService.Start(r.Context()); err != nil {
		s.error(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"message": "scraping started"})
}

func (s *Server) handleCrawlStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.CrawlService.Status())
}
