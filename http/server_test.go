package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/autotrack"
	autotrackhttp "github.com/fwojciec/autotrack/http"
	"github.com/fwojciec/autotrack/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC)

func newServer(vehicles *mock.VehicleService, history *mock.HistoryService, crawl *mock.CrawlService) *autotrackhttp.Server {
	s := autotrackhttp.NewServer()
	s.Now = func() time.Time { return now }
	s.VehicleService = vehicles
	s.HistoryService = history
	s.CrawlService = crawl
	return s
}

func do(t *testing.T, s *autotrackhttp.Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func capturingVehicles(vehicles []*autotrack.Vehicle, total int) (*mock.VehicleService, *autotrack.VehicleFilter) {
	var got autotrack.VehicleFilter
	return &mock.VehicleService{
		FindVehiclesFn: func(_ context.Context, filter autotrack.VehicleFilter) ([]*autotrack.Vehicle, int, error) {
			got = filter
			return vehicles, total, nil
		},
	}, &got
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	w := do(t, newServer(nil, nil, nil), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestServer_VehicleIndex(t *testing.T) {
	t.Parallel()

	t.Run("defaults to active vehicles and first page", func(t *testing.T) {
		t.Parallel()

		svc, filter := capturingVehicles([]*autotrack.Vehicle{{ID: 1, ExternalID: "123", Title: "Civic", Status: autotrack.StatusActive}}, 41)
		w := do(t, newServer(svc, nil, nil), http.MethodGet, "/api/vehicles")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []autotrack.Status{autotrack.StatusActive}, filter.Statuses)
		assert.Equal(t, 20, filter.Limit)
		assert.Equal(t, 0, filter.Offset)

		body := decode[map[string]any](t, w)
		assert.Equal(t, float64(41), body["total"])
		assert.Equal(t, float64(3), body["pages"])
		assert.Equal(t, float64(1), body["current_page"])
		vehicles := body["vehicles"].([]any)
		require.Len(t, vehicles, 1)
		assert.Equal(t, "123", vehicles[0].(map[string]any)["external_id"])
	})

	t.Run("applies filters and pagination", func(t *testing.T) {
		t.Parallel()

		svc, filter := capturingVehicles(nil, 0)
		w := do(t, newServer(svc, nil, nil), http.MethodGet, "/api/vehicles?status=removed&brand=Honda&model=civic&page=3&per_page=10")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []autotrack.Status{autotrack.StatusRemoved}, filter.Statuses)
		assert.Equal(t, "Honda", *filter.Brand)
		assert.Equal(t, "civic", *filter.Model)
		assert.Equal(t, 10, filter.Limit)
		assert.Equal(t, 20, filter.Offset)
		assert.JSONEq(t, `{"vehicles":[],"total":0,"pages":0,"current_page":3}`, w.Body.String())
	})

	t.Run("empty status lists every status", func(t *testing.T) {
		t.Parallel()

		svc, filter := capturingVehicles(nil, 0)
		w := do(t, newServer(svc, nil, nil), http.MethodGet, "/api/vehicles?status=")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, filter.Statuses)
	})

	t.Run("caps page size", func(t *testing.T) {
		t.Parallel()

		svc, filter := capturingVehicles(nil, 0)
		do(t, newServer(svc, nil, nil), http.MethodGet, "/api/vehicles?per_page=500&page=-1")

		assert.Equal(t, 100, filter.Limit)
		assert.Equal(t, 0, filter.Offset)
	})

	t.Run("rejects page beyond the addressable range", func(t *testing.T) {
		t.Parallel()

		w := do(t, newServer(&mock.VehicleService{}, nil, nil), http.MethodGet, "/api/vehicles?page=9223372036854775807&per_page=20")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "page out of range")
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		t.Parallel()

		w := do(t, newServer(&mock.VehicleService{}, nil, nil), http.MethodGet, "/api/vehicles?status=parked")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid status")
	})

	t.Run("hides internal error details", func(t *testing.T) {
		t.Parallel()

		svc := &mock.VehicleService{
			FindVehiclesFn: func(context.Context, autotrack.VehicleFilter) ([]*autotrack.Vehicle, int, error) {
				return nil, 0, errors.New("no such table: vehicles")
			},
		}
		w := do(t, newServer(svc, nil, nil), http.MethodGet, "/api/vehicles")

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Internal error."}`, w.Body.String())
	})
}

func TestServer_VehicleView(t *testing.T) {
	t.Parallel()

	svc := &mock.VehicleService{
		FindVehicleByIDFn: func(_ context.Context, id int64) (*autotrack.Vehicle, error) {
			if id == 7 {
				return &autotrack.Vehicle{ID: 7, ExternalID: "777", Title: "Uno"}, nil
			}
			return nil, autotrack.Errorf(autotrack.ENOTFOUND, "vehicle not found")
		},
	}
	s := newServer(svc, nil, nil)

	t.Run("returns vehicle", func(t *testing.T) {
		t.Parallel()

		w := do(t, s, http.MethodGet, "/api/vehicles/7")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "777", decode[map[string]any](t, w)["external_id"])
	})

	t.Run("returns 404 for unknown vehicle", func(t *testing.T) {
		t.Parallel()

		w := do(t, s, http.MethodGet, "/api/vehicles/8")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.JSONEq(t, `{"error":"vehicle not found"}`, w.Body.String())
	})

	t.Run("returns 404 for non-numeric id", func(t *testing.T) {
		t.Parallel()

		w := do(t, s, http.MethodGet, "/api/vehicles/abc")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_VehicleRecentAndRemoved(t *testing.T) {
	t.Parallel()

	t.Run("recent lists active vehicles first seen in the last day", func(t *testing.T) {
		t.Parallel()

		svc, filter := capturingVehicles(nil, 0)
		w := do(t, newServer(svc, nil, nil), http.MethodGet, "/api/vehicles/recent")

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
		assert.Equal(t, []autotrack.Status{autotrack.StatusActive}, filter.Statuses)
		assert.Equal(t, now.Add(-24*time.Hour), *filter.FirstSeenSince)
		assert.Equal(t, autotrack.SortByFirstSeen, filter.SortBy)
		assert.Equal(t, 50, filter.Limit)
	})

	t.Run("removed lists sold and removed vehicles updated in the last day", func(t *testing.T) {
		t.Parallel()

		svc, filter := capturingVehicles(nil, 0)
		w := do(t, newServer(svc, nil, nil), http.MethodGet, "/api/vehicles/removed")

		require.Equal(t, http.StatusOK, w.Code)
		assert.ElementsMatch(t, []autotrack.Status{autotrack.StatusSold, autotrack.StatusRemoved}, filter.Statuses)
		assert.Equal(t, now.Add(-24*time.Hour), *filter.UpdatedSince)
		assert.Equal(t, autotrack.SortByUpdatedAt, filter.SortBy)
	})
}

func TestServer_VehicleSearch(t *testing.T) {
	t.Parallel()

	t.Run("searches active vehicles", func(t *testing.T) {
		t.Parallel()

		svc, filter := capturingVehicles([]*autotrack.Vehicle{{ID: 1}}, 1)
		w := do(t, newServer(svc, nil, nil), http.MethodGet, "/api/vehicles/search?q=civic")

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "civic", *filter.Query)
		assert.Equal(t, []autotrack.Status{autotrack.StatusActive}, filter.Statuses)
		assert.Len(t, decode[[]any](t, w), 1)
	})

	t.Run("requires a query", func(t *testing.T) {
		t.Parallel()

		w := do(t, newServer(&mock.VehicleService{}, nil, nil), http.MethodGet, "/api/vehicles/search?q=")

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"query parameter q is required"}`, w.Body.String())
	})
}

func TestServer_VehicleStats(t *testing.T) {
	t.Parallel()

	var since time.Time
	svc := &mock.VehicleService{
		VehicleStatsFn: func(_ context.Context, s time.Time) (*autotrack.Stats, error) {
			since = s
			return &autotrack.Stats{TotalActive: 3, TotalSold: 1, TotalRemoved: 2, AddedSince: 1, RemovedSince: 2}, nil
		},
	}
	w := do(t, newServer(svc, nil, nil), http.MethodGet, "/api/vehicles/stats")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, now.Add(-24*time.Hour), since)
	assert.JSONEq(t, `{"total_active":3,"total_sold":1,"total_removed":2,"added_last_24h":1,"removed_last_24h":2}`, w.Body.String())
}

func TestServer_VehicleHistory(t *testing.T) {
	t.Parallel()

	history := &mock.HistoryService{
		FindHistoryFn: func(_ context.Context, id int64) ([]*autotrack.HistoryEntry, error) {
			if id != 1 {
				return nil, autotrack.Errorf(autotrack.ENOTFOUND, "vehicle not found")
			}
			oldPrice, newPrice := "R$80.000", "R$75.000"
			return []*autotrack.HistoryEntry{{
				ID:        2,
				VehicleID: 1,
				Action:    autotrack.ActionUpdated,
				Changes:   autotrack.Changes{autotrack.FieldPrice: {Old: &oldPrice, New: &newPrice}},
				Timestamp: now,
			}}, nil
		},
	}
	s := newServer(nil, history, nil)

	t.Run("returns entries", func(t *testing.T) {
		t.Parallel()

		w := do(t, s, http.MethodGet, "/api/vehicles/history/1")
		require.Equal(t, http.StatusOK, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), `"changes":{"price":{"old":"R$80.000","new":"R$75.000"}}`))
	})

	t.Run("returns 404 for unknown vehicle", func(t *testing.T) {
		t.Parallel()

		w := do(t, s, http.MethodGet, "/api/vehicles/history/2")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_Crawl(t *testing.T) {
	t.Parallel()

	t.Run("starts a cycle", func(t *testing.T) {
		t.Parallel()

		var started bool
		crawl := &mock.CrawlService{StartFn: func(context.Context) error { started = true; return nil }}
		w := do(t, newServer(nil, nil, crawl), http.MethodPost, "/api/scraper/run")

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.JSONEq(t, `{"message":"scraping started"}`, w.Body.String())
		assert.True(t, started)
	})

	t.Run("returns 409 while a cycle is running", func(t *testing.T) {
		t.Parallel()

		crawl := &mock.CrawlService{StartFn: func(context.Context) error {
			return autotrack.Errorf(autotrack.ECONFLICT, "crawl cycle already running")
		}}
		w := do(t, newServer(nil, nil, crawl), http.MethodPost, "/api/scraper/run")

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.JSONEq(t, `{"error":"crawl cycle already running"}`, w.Body.String())
	})

	t.Run("reports status", func(t *testing.T) {
		t.Parallel()

		lastRun := now
		crawl := &mock.CrawlService{StatusFn: func() autotrack.RunStatus {
			return autotrack.RunStatus{
				Running:    true,
				LastRun:    &lastRun,
				LastResult: &autotrack.CycleResult{Success: true, Message: "1 new, 0 updated, 0 removed"},
			}
		}}
		w := do(t, newServer(nil, nil, crawl), http.MethodGet, "/api/scraper/status")

		require.Equal(t, http.StatusOK, w.Code)
		body := decode[map[string]any](t, w)
		assert.Equal(t, true, body["is_running"])
		assert.Equal(t, "2025-03-02T12:00:00Z", body["last_run"])
		assert.Equal(t, "1 new, 0 updated, 0 removed", body["last_result"].(map[string]any)["message"])
	})

	t.Run("rejects GET on run", func(t *testing.T) {
		t.Parallel()

		w := do(t, newServer(nil, nil, &mock.CrawlService{}), http.MethodGet, "/api/scraper/run")
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestServer_Open(t *testing.T) {
	t.Parallel()

	s := newServer(nil, nil, nil)
	s.Addr = "127.0.0.1:0"
	require.NoError(t, s.Open())
	defer s.Close()

	resp, err := http.Get(s.URL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestErrorStatusCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, autotrackhttp.ErrorStatusCode(autotrack.EINVALID))
	assert.Equal(t, http.StatusNotFound, autotrackhttp.ErrorStatusCode(autotrack.ENOTFOUND))
	assert.Equal(t, http.StatusConflict, autotrackhttp.ErrorStatusCode(autotrack.ECONFLICT))
	assert.Equal(t, http.StatusInternalServerError, autotrackhttp.ErrorStatusCode("weird"))
}
