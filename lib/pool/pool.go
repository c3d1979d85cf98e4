// Package pool holds the canonical data model every source is
// normalized into, and the grouping helper the scrapers use to fold raw
// schedule entries into per-facility records.
package pool

import (
	"regexp"
	"strings"
	"time"
)

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Session is one swim time slot. Values are immutable once mapped from a
// raw entry; unparseable times come through as empty strings.
type Session struct {
	DayOfWeek       string    `json:"day_of_week"`
	SwimType        string    `json:"swim_type"`
	IsChildFriendly bool      `json:"is_child_friendly"`
	StartTime       string    `json:"start_time"`
	EndTime         string    `json:"end_time"`
	AgeRestriction  string    `json:"age_restriction"`
	DateRange       DateRange `json:"date_range"`
}

// Pool is a physical facility plus its scheduled sessions. Latitude and
// longitude stay null unless the coordinate table knows the facility.
type Pool struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Municipality string    `json:"municipality"`
	Province     string    `json:"province"`
	Address      string    `json:"address"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Sessions     []Session `json:"schedules"`
}

type Metadata struct {
	LastUpdated                string `json:"last_updated"`
	Season                     string `json:"season"`
	CollectionTime             string `json:"collection_time"`
	Sources                    int    `json:"municipalities"`
	TotalPools                 int    `json:"total_pools"`
	TotalSessions              int    `json:"total_sessions"`
	TotalChildFriendlySessions int    `json:"total_child_friendly_sessions"`
}

// Dataset is the whole output of one collection run. Each run replaces
// the previous file wholesale.
type Dataset struct {
	Metadata Metadata `json:"metadata"`
	Pools    []Pool   `json:"pools"`
}

var whitespaceRegex = regexp.MustCompile(`\s+`)

// SlugID derives the stable facility id used for grouping and for the
// coordinate table: lowercased municipality and facility label joined
// with hyphens.
func SlugID(municipality, facility string) string {
	slug := strings.ToLower(municipality) + "-" + strings.ToLower(facility)
	return whitespaceRegex.ReplaceAllString(slug, "-")
}

// SeasonLabel names the season the collection window starts in.
func SeasonLabel(start time.Time) string {
	year := start.Format("2006")
	switch {
	case start.Month() >= time.September:
		return "Fall " + year
	case start.Month() <= time.March:
		return "Winter " + year
	case start.Month() <= time.June:
		return "Spring " + year
	default:
		return "Summer " + year
	}
}

// Builder groups sessions by facility id while keeping first-seen order.
// Each scraper holds its own Builder for the duration of one collect
// call; two raw entries resolving to the same id always merge into one
// Pool by appending sessions.
type Builder struct {
	byID  map[string]*Pool
	order []string
}

func NewBuilder() *Builder {
	return &Builder{byID: map[string]*Pool{}}
}

// Add appends a session to the pool identified by p.ID, creating the
// pool from p on first sight. Fields of p other than the session list
// are only read for a new id.
func (b *Builder) Add(p Pool, s Session) {
	existing, ok := b.byID[p.ID]
	if !ok {
		created := p
		created.Sessions = nil
		b.byID[p.ID] = &created
		b.order = append(b.order, p.ID)
		existing = &created
	}
	existing.Sessions = append(existing.Sessions, s)
}

// Pools returns the grouped pools in first-seen order.
func (b *Builder) Pools() []Pool {
	out := make([]Pool, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, *b.byID[id])
	}
	return out
}
