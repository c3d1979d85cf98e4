package collector

import (
	"fmt"
	"sort"
	"time"

	"gtapools-backend/lib/pool"
	"gtapools-backend/lib/scrapers/activenet"
)

const (
	SystemPerfectMind = "perfectmind"
	SystemActiveNet   = "activenet"
)

// SourceConfig describes one booking platform to collect from. Which
// fields matter depends on the system: perfectmind needs the calendar
// page + widget endpoint, activenet needs the listing endpoint and its
// category filter ids.
type SourceConfig struct {
	System     string                      `json:"system"`
	Name       string                      `json:"name"`
	Province   string                      `json:"province"`
	PageURL    string                      `json:"page_url"`
	ApiURL     string                      `json:"api_url"`
	CalendarID string                      `json:"calendar_id"`
	WidgetID   string                      `json:"widget_id"`
	Filters    activenet.CategoryFilterSet `json:"filters"`
	// overrides the per-system classification fallthrough when set
	// (perfectmind excludes by default, activenet includes)
	DefaultWhenUnclassified *bool `json:"default_when_unclassified"`
}

// Config is the collection run configuration, read from config.json5.
// The dateRange/childFriendlyTypes/excludeTypes key spelling matches the
// config files the downstream viewer already consumes.
type Config struct {
	Sources            map[string]SourceConfig `json:"municipalities"`
	DateRange          pool.DateRange          `json:"dateRange"`
	ChildFriendlyTypes []string                `json:"childFriendlyTypes"`
	ExcludeTypes       []string                `json:"excludeTypes"`
	// cross-source pools that happen to share an id are kept as
	// separate entries unless this is set
	MergeDuplicateIDs bool `json:"merge_duplicate_ids"`
	// collect independent sources concurrently; output order stays
	// deterministic either way
	Parallel bool   `json:"parallel"`
	Output   string `json:"output"`
}

func (c Config) validate() (time.Time, error) {
	start, err := time.Parse("2006-01-02", c.DateRange.Start)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid dateRange.start: %w", err)
	}
	if _, err := time.Parse("2006-01-02", c.DateRange.End); err != nil {
		return time.Time{}, fmt.Errorf("invalid dateRange.end: %w", err)
	}
	for key, src := range c.Sources {
		switch src.System {
		case SystemPerfectMind, SystemActiveNet:
		default:
			return time.Time{}, fmt.Errorf("source %q: unknown system %q", key, src.System)
		}
	}
	return start, nil
}

// sourceKeys returns the source keys in a stable order; it stands in
// for declaration order since json objects decode into an unordered
// map.
func (c Config) sourceKeys() []string {
	keys := make([]string, 0, len(c.Sources))
	for key := range c.Sources {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
