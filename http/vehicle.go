package http

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/autotrack"
	"github.com/go-chi/chi/v5"
)

// Listing defaults.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100

	// RecentLimit caps the recent, removed and search endpoints.
	RecentLimit = 50

	// RecentWindow is how far back the recent, removed and stats endpoints look.
	RecentWindow = 24 * time.Hour
)

func (s *Server) registerVehicleRoutes(r chi.Router) {
	r.Get("/", s.handleVehicleIndex)
	r.Get("/recent", s.handleVehicleRecent)
	r.Get("/removed", s.handleVehicleRemoved)
	r.Get("/stats", s.handleVehicleStats)
	r.Get("/search", s.handleVehicleSearch)
	r.Get("/history/{id}", s.handleVehicleHistory)
	r.Get("/{id}", s.handleVehicleView)
}

type vehicleListResponse struct {
	Vehicles    []*autotrack.Vehicle `json:"vehicles"`
	Total       int                  `json:"total"`
	Pages       int                  `json:"pages"`
	CurrentPage int                  `json:"current_page"`
}

// handleVehicleIndex lists vehicles with optional status, brand and model
// filters. Status defaults to active; an explicitly empty status lists all.
func (s *Server) handleVehicleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := autotrack.VehicleFilter{SortBy: autotrack.SortByLastSeen}

	if values, ok := q["status"]; !ok {
		filter.Statuses = []autotrack.Status{autotrack.StatusActive}
	} else if status := strings.TrimSpace(values[0]); status != "" {
		st := autotrack.Status(strings.ToLower(status))
		if err := st.Validate(); err != nil {
			s.error(w, r, err)
			return
		}
		filter.Statuses = []autotrack.Status{st}
	}

	if brand := strings.TrimSpace(q.Get("brand")); brand != "" {
		filter.Brand = &brand
	}
	if model := strings.TrimSpace(q.Get("model")); model != "" {
		filter.Model = &model
	}

	page := positiveInt(q.Get("page"), 1)
	perPage := min(positiveInt(q.Get("per_page"), DefaultPerPage), MaxPerPage)
	if page > math.MaxInt/perPage {
		s.error(w, r, autotrack.Errorf(autotrack.EINVALID, "page out of range"))
		return
	}
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	vehicles, total, err := s.VehicleService.FindVehicles(r.Context(), filter)
	if err != nil {
		s.error(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, vehicleListResponse{
		Vehicles:    nonNil(vehicles),
		Total:       total,
		Pages:       int(math.Ceil(float64(total) / float64(perPage))),
		CurrentPage: page,
	})
}

func (s *Server) handleVehicleView(w http.ResponseWriter, r *http.Request) {
	id, ok := s.vehicleID(w, r)
	if !ok {
		return
	}

	v, err := s.VehicleService.FindVehicleByID(r.Context(), id)
	if err != nil {
		s.error(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// handleVehicleRecent lists active vehicles first seen within the recent window.
func (s *Server) handleVehicleRecent(w http.ResponseWriter, r *http.Request) {
	since := s.now().Add(-RecentWindow)
	s.writeVehicles(w, r, autotrack.VehicleFilter{
		Statuses:       []autotrack.Status{autotrack.StatusActive},
		FirstSeenSince: &since,
		SortBy:         autotrack.SortByFirstSeen,
		Limit:          RecentLimit,
	})
}

// handleVehicleRemoved lists vehicles sold or removed within the recent window.
func (s *Server) handleVehicleRemoved(w http.ResponseWriter, r *http.Request) {
	since := s.now().Add(-RecentWindow)
	s.writeVehicles(w, r, autotrack.VehicleFilter{
		Statuses:     []autotrack.Status{autotrack.StatusSold, autotrack.StatusRemoved},
		UpdatedSince: &since,
		SortBy:       autotrack.SortByUpdatedAt,
		Limit:        RecentLimit,
	})
}

func (s *Server) handleVehicleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.error(w, r, autotrack.Errorf(autotrack.EINVALID, "query parameter q is required"))
		return
	}

	s.writeVehicles(w, r, autotrack.VehicleFilter{
		Statuses: []autotrack.Status{autotrack.StatusActive},
		Query:    &query,
		SortBy:   autotrack.SortByLastSeen,
		Limit:    RecentLimit,
	})
}

func (s *Server) handleVehicleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.VehicleService.VehicleStats(r.Context(), s.now().Add(-RecentWindow))
	if err != nil {
		s.error(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleVehicleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := s.vehicleID(w, r)
	if !ok {
		return
	}

	entries, err := s.HistoryService.FindHistory(r.Context(), id)
	if err != nil {
		s.error(w, r, err)
		return
	}
	if entries == nil {
		entries = []*autotrack.HistoryEntry{}
	}

	writeJSON(w, http.StatusOK, entries)
}

// writeVehicles writes the vehicles matching filter as a JSON array.
func (s *Server) writeVehicles(w http.ResponseWriter, r *http.Request, filter autotrack.VehicleFilter) {
	vehicles, _, err := s.VehicleService.FindVehicles(r.Context(), filter)
	if err != nil {
		s.error(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nonNil(vehicles))
}

// vehicleID parses the id URL parameter. Identifiers that are not positive
// integers cannot name a vehicle and are reported as not found.
func (s *Server) vehicleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		s.error(w, r, autotrack.Errorf(autotrack.ENOTFOUND, "vehicle not found"))
		return 0, false
	}
	return id, true
}

// positiveInt parses s, returning def when s is missing, malformed, or below 1.
func positiveInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func nonNil(vehicles []*autotrack.Vehicle) []*autotrack.Vehicle {
	if vehicles == nil {
		return []*autotrack.Vehicle{}
	}
	return vehicles
}
