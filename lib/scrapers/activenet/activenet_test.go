package activenet

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"gtapools-backend/lib/classify"
	"gtapools-backend/lib/pool"
	"gtapools-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

type fakeListing struct {
	t            *testing.T
	totalRecords int
	// page -> items; a missing page answers 500
	pages map[int][]map[string]any
	// every page number the server was asked for, in order
	requested []int
}

func (f *fakeListing) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ActivitySearchPattern struct {
				DateAfter  string `json:"date_after"`
				DaysOfWeek string `json:"days_of_week"`
			} `json:"activity_search_pattern"`
			Page int `json:"page"`
		}
		require.NoError(f.t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(f.t, "0000000", req.ActivitySearchPattern.DaysOfWeek)

		f.requested = append(f.requested, req.Page)

		items, ok := f.pages[req.Page]
		if !ok {
			http.Error(w, "boom", http.StatusInternalServerError)
			w.Write([]byte("not json"))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"body": map[string]any{
				"activity_items": items,
				"total_records":  f.totalRecords,
			},
		})
	}
}

func swim(name string, n int) map[string]any {
	return map[string]any{
		"name":            name,
		"age_description": "All ages",
		"location":        map[string]any{"label": fmt.Sprintf("Pool %d", n)},
		"time_range":      "12:30 PM - 1:55 PM",
		"days_of_week":    "Mon",
	}
}

func testConfig(server *httptest.Server) Config {
	return Config{
		Name:     "Mississauga",
		Province: "ON",
		ApiURL:   server.URL + "/rest/activities/list",
		Filters: CategoryFilterSet{
			CategoryIDs:      []string{"42"},
			TypeIDs:          []string{"7"},
			OtherCategoryIDs: []string{"7", "6"},
		},
	}
}

func collect(t *testing.T, f *fakeListing) ([]pool.Pool, error) {
	server := httptest.NewServer(f.handler())
	t.Cleanup(server.Close)

	client, err := NewClient()
	require.NoError(t, err)

	window := pool.DateRange{Start: "2025-03-01", End: "2025-03-31"}
	return client.Collect(context.Background(), testConfig(server), window, classify.Classifier{
		DefaultWhenUnclassified: true,
	})
}

func TestCollectSinglePage(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:activenet")
	defer cleanup()

	f := &fakeListing{
		t:            t,
		totalRecords: 2,
		pages: map[int][]map[string]any{
			1: {swim("Family Swim", 1), swim("Open Swim", 1)},
		},
	}

	pools, err := collect(t, f)
	require.NoError(t, err)
	require.Equal(t, []int{1}, f.requested)

	require.Len(t, pools, 1)
	require.Equal(t, "mississauga-pool-1", pools[0].ID)
	require.Len(t, pools[0].Sessions, 2)

	session := pools[0].Sessions[0]
	require.Equal(t, "Monday", session.DayOfWeek)
	require.Equal(t, "12:30", session.StartTime)
	require.Equal(t, "13:55", session.EndTime)
	require.True(t, session.IsChildFriendly)
	// platform gave no date range of its own, the query window's start
	// is echoed
	require.Equal(t, "2025-03-01", session.DateRange.Start)
	require.Empty(t, session.DateRange.End)
}

func TestCollectPaginationCap(t *testing.T) {
	pages := map[int][]map[string]any{}
	for page := 1; page <= 10; page++ {
		pages[page] = []map[string]any{swim("Family Swim", page)}
	}
	f := &fakeListing{
		t: t,
		// implies 10 pages, the cap stops the walk at 8
		totalRecords: 200,
		pages:        pages,
	}

	pools, err := collect(t, f)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, f.requested)
	require.Len(t, pools, 8)
}

func TestCollectPartialOnPageFailure(t *testing.T) {
	f := &fakeListing{
		t:            t,
		totalRecords: 100,
		pages: map[int][]map[string]any{
			1: {swim("Family Swim", 1)},
			2: {swim("Open Swim", 2)},
			// page 3 missing -> non-json error body
		},
	}

	pools, err := collect(t, f)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, f.requested)

	// pages 1 and 2 survive, pagination stopped at the failure
	require.Len(t, pools, 2)
	require.Equal(t, "mississauga-pool-1", pools[0].ID)
	require.Equal(t, "mississauga-pool-2", pools[1].ID)
}

func TestCollectFirstPageFailure(t *testing.T) {
	f := &fakeListing{
		t:            t,
		totalRecords: 100,
		pages:        map[int][]map[string]any{},
	}

	_, err := collect(t, f)
	require.Error(t, err)
}

func TestCollectUnknownLocation(t *testing.T) {
	f := &fakeListing{
		t:            t,
		totalRecords: 1,
		pages: map[int][]map[string]any{
			1: {{
				"name":             "Lane Swim",
				"age_description":  "16 yrs +",
				"time_range":       "6:00 AM - 7:00 AM",
				"days_of_week":     "Tue",
				"date_range_start": "2025-03-04",
				"date_range_end":   "2025-06-24",
			}},
		},
	}

	pools, err := collect(t, f)
	require.NoError(t, err)
	require.Len(t, pools, 1)
	require.Equal(t, "mississauga-unknown-location", pools[0].ID)
	require.Equal(t, "Unknown Location", pools[0].Name)

	session := pools[0].Sessions[0]
	require.False(t, session.IsChildFriendly)
	require.Equal(t, "2025-03-04", session.DateRange.Start)
	require.Equal(t, "2025-06-24", session.DateRange.End)
}
