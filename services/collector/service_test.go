package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"gtapools-backend/lib/coords"
	"gtapools-backend/lib/pool"
	"gtapools-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func perfectMindServer(t *testing.T, classes string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/calendar", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<input name="__RequestVerificationToken" value="T1" />`))
	})
	mux.HandleFunc("/api/classes", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		require.Equal(t, "T1", r.PostFormValue("RequestVerificationToken"))
		w.Write([]byte(classes))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func activeNetServer(t *testing.T, items string) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"body": {"activity_items": ` + items + `, "total_records": 1}}`))
	}))
	t.Cleanup(server.Close)
	return server
}

func perfectMindSource(server *httptest.Server, name string) SourceConfig {
	return SourceConfig{
		System:     SystemPerfectMind,
		Name:       name,
		PageURL:    server.URL + "/calendar",
		ApiURL:     server.URL + "/api/classes",
		CalendarID: "cal-1",
		WidgetID:   "widget-1",
	}
}

func baseConfig() Config {
	return Config{
		Sources:   map[string]SourceConfig{},
		DateRange: pool.DateRange{Start: "2025-03-01", End: "2025-03-31"},
	}
}

func TestCollectEndToEnd(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:collector")
	defer cleanup()

	pm := perfectMindServer(t, `{"Classes": [{
		"EventName": "Family Swim",
		"Location": "Main Pool",
		"AgeRestrictions": "All ages",
		"OccurrenceDate": "20250315",
		"FormattedStartTime": "1:00 PM",
		"FormattedEndTime": "2:00 PM"
	}]}`)

	cfg := baseConfig()
	cfg.Sources["oakville"] = perfectMindSource(pm, "Oakville")

	service, err := NewService(cfg, coords.Table{})
	require.NoError(t, err)

	ds := service.Collect(context.Background())
	require.Len(t, ds.Pools, 1)
	require.Equal(t, "Main Pool", ds.Pools[0].Name)

	expected := pool.Session{
		DayOfWeek:       "Saturday",
		SwimType:        "Family Swim",
		IsChildFriendly: true,
		StartTime:       "13:00",
		EndTime:         "14:00",
		AgeRestriction:  "All ages",
		DateRange:       pool.DateRange{Start: "2025-03-15", End: "2025-03-15"},
	}
	require.Len(t, ds.Pools[0].Sessions, 1)
	if diff := cmp.Diff(expected, ds.Pools[0].Sessions[0]); diff != "" {
		t.Fatalf("session mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, "Winter 2025", ds.Metadata.Season)
	require.Equal(t, 1, ds.Metadata.Sources)
	require.Equal(t, 1, ds.Metadata.TotalPools)
	require.Equal(t, 1, ds.Metadata.TotalSessions)
	require.Equal(t, 1, ds.Metadata.TotalChildFriendlySessions)
}

func TestCollectSourceFailureIsIsolated(t *testing.T) {
	working := perfectMindServer(t, `{"Classes": [{
		"EventName": "Family Swim",
		"Location": "Nelson Pool",
		"AgeRestrictions": "All ages",
		"OccurrenceDate": "20250316",
		"FormattedStartTime": "1:00 PM",
		"FormattedEndTime": "2:00 PM"
	}]}`)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`no token in sight`))
	}))
	t.Cleanup(broken.Close)

	cfg := baseConfig()
	cfg.Sources["burlington"] = perfectMindSource(working, "Burlington")
	cfg.Sources["oakville"] = SourceConfig{
		System:  SystemPerfectMind,
		Name:    "Oakville",
		PageURL: broken.URL + "/calendar",
		ApiURL:  broken.URL + "/api/classes",
	}

	service, err := NewService(cfg, coords.Table{})
	require.NoError(t, err)

	ds := service.Collect(context.Background())
	require.Len(t, ds.Pools, 1)
	require.Equal(t, "Burlington", ds.Pools[0].Municipality)
}

func TestCollectCoordinateAnnotation(t *testing.T) {
	pm := perfectMindServer(t, `{"Classes": [{
		"EventName": "Family Swim",
		"Location": "Lions Pool",
		"AgeRestrictions": "All ages",
		"OccurrenceDate": "20250315",
		"FormattedStartTime": "1:00 PM",
		"FormattedEndTime": "2:00 PM"
	}]}`)

	cfg := baseConfig()
	cfg.Sources["oakville"] = perfectMindSource(pm, "Oakville")

	table := coords.Table{
		"oakville-lions-pool": {Lat: 43.439757, Lng: -79.680585},
	}
	service, err := NewService(cfg, table)
	require.NoError(t, err)

	ds := service.Collect(context.Background())
	require.Len(t, ds.Pools, 1)
	require.NotNil(t, ds.Pools[0].Latitude)
	require.Equal(t, 43.439757, *ds.Pools[0].Latitude)
}

func duplicateIDConfig(t *testing.T) Config {
	// both municipalities are configured with the same display name, so
	// their facilities resolve to the same pool id
	first := perfectMindServer(t, `{"Classes": [
		{"EventName": "Family Swim", "Location": "Main Pool", "AgeRestrictions": "All ages", "OccurrenceDate": "20250315", "FormattedStartTime": "1:00 PM", "FormattedEndTime": "2:00 PM"}
	]}`)
	second := perfectMindServer(t, `{"Classes": [
		{"EventName": "Open Swim", "Location": "Main Pool", "AgeRestrictions": "All ages", "OccurrenceDate": "20250316", "FormattedStartTime": "3:00 PM", "FormattedEndTime": "4:00 PM"}
	]}`)

	cfg := baseConfig()
	cfg.Sources["a"] = perfectMindSource(first, "Oakville")
	cfg.Sources["b"] = perfectMindSource(second, "Oakville")
	return cfg
}

func TestCollectKeepsDuplicateIDsByDefault(t *testing.T) {
	service, err := NewService(duplicateIDConfig(t), coords.Table{})
	require.NoError(t, err)

	ds := service.Collect(context.Background())
	require.Len(t, ds.Pools, 2)
	require.Equal(t, ds.Pools[0].ID, ds.Pools[1].ID)
}

func TestCollectMergeDuplicateIDs(t *testing.T) {
	cfg := duplicateIDConfig(t)
	cfg.MergeDuplicateIDs = true

	service, err := NewService(cfg, coords.Table{})
	require.NoError(t, err)

	ds := service.Collect(context.Background())
	require.Len(t, ds.Pools, 1)
	require.Len(t, ds.Pools[0].Sessions, 2)
	require.Equal(t, "Family Swim", ds.Pools[0].Sessions[0].SwimType)
	require.Equal(t, "Open Swim", ds.Pools[0].Sessions[1].SwimType)
}

func TestCollectParallelKeepsOrder(t *testing.T) {
	an := activeNetServer(t, `[{
		"name": "Open Swim",
		"age_description": "All ages",
		"location": {"label": "River Grove"},
		"time_range": "12:30 PM - 1:55 PM",
		"days_of_week": "Mon"
	}]`)
	pm := perfectMindServer(t, `{"Classes": [{
		"EventName": "Family Swim",
		"Location": "Lions Pool",
		"AgeRestrictions": "All ages",
		"OccurrenceDate": "20250315",
		"FormattedStartTime": "1:00 PM",
		"FormattedEndTime": "2:00 PM"
	}]}`)

	cfg := baseConfig()
	cfg.Parallel = true
	cfg.Sources["mississauga"] = SourceConfig{
		System: SystemActiveNet,
		Name:   "Mississauga",
		ApiURL: an.URL + "/rest/activities/list",
	}
	cfg.Sources["oakville"] = perfectMindSource(pm, "Oakville")

	service, err := NewService(cfg, coords.Table{})
	require.NoError(t, err)

	// source keys are ordered, so mississauga always precedes oakville
	ds := service.Collect(context.Background())
	require.Len(t, ds.Pools, 2)
	require.Equal(t, "Mississauga", ds.Pools[0].Municipality)
	require.Equal(t, "Oakville", ds.Pools[1].Municipality)
}

func TestNewServiceRejectsBadConfig(t *testing.T) {
	cfg := baseConfig()
	cfg.DateRange.Start = "soon"
	_, err := NewService(cfg, coords.Table{})
	require.Error(t, err)

	cfg = baseConfig()
	cfg.Sources["x"] = SourceConfig{System: "legendboats", Name: "X"}
	_, err = NewService(cfg, coords.Table{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown system")
}

func TestWriteDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "output", "pool-data.json")
	ds := pool.Dataset{
		Metadata: pool.Metadata{Season: "Winter 2025"},
		Pools:    []pool.Pool{{ID: "oakville-lions-pool", Name: "Lions Pool"}},
	}
	require.NoError(t, WriteDataset(path, ds))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var read pool.Dataset
	require.NoError(t, json.Unmarshal(data, &read))
	require.Equal(t, "Winter 2025", read.Metadata.Season)
	require.Len(t, read.Pools, 1)
}
