// Package activenet scrapes drop-in swim schedules from ActiveNet
// activity listings (Mississauga). The platform exposes a paginated
// JSON search endpoint; page one reports the total record count and the
// remaining pages are walked sequentially.
package activenet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"gtapools-backend/lib/classify"
	"gtapools-backend/lib/pool"
	"gtapools-backend/lib/telemetry"
	"gtapools-backend/lib/timetext"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/activenet")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// the endpoint serves fixed pages of 20 records
const pageSize = 20

// hard ceiling on pagination; anything past page 8 is dropped even when
// total_records implies more
const maxPages = 8

// CategoryFilterSet carries the platform's activity taxonomy ids. These
// differ per deployment, so they live in the source config instead of
// the scraper.
type CategoryFilterSet struct {
	CategoryIDs      []string `json:"activity_category_ids"`
	TypeIDs          []string `json:"activity_type_ids"`
	OtherCategoryIDs []string `json:"activity_other_category_ids"`
}

// Config identifies one ActiveNet-backed municipality.
type Config struct {
	Name     string            `json:"name"`
	Province string            `json:"province"`
	ApiURL   string            `json:"api_url"`
	Filters  CategoryFilterSet `json:"filters"`
}

type Client struct {
	http *resty.Client
}

func NewClient() (*Client, error) {
	client := resty.New()
	client.SetHeader("user-agent", userAgent)
	client.SetHeader("Accept", "application/json, text/plain, */*")
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/activenet/http")

	return &Client{http: client}, nil
}

type searchPattern struct {
	ActivitySelectParam      int      `json:"activity_select_param"`
	ActivityCategoryIDs      []string `json:"activity_category_ids"`
	ActivityTypeIDs          []string `json:"activity_type_ids"`
	ActivityOtherCategoryIDs []string `json:"activity_other_category_ids"`
	DateAfter                string   `json:"date_after"`
	DaysOfWeek               string   `json:"days_of_week"`
}

type searchRequest struct {
	ActivitySearchPattern   searchPattern `json:"activity_search_pattern"`
	ActivityTransferPattern struct{}      `json:"activity_transfer_pattern"`
	Page                    int           `json:"page"`
}

type rawActivity struct {
	Name           string `json:"name"`
	AgeDescription string `json:"age_description"`
	Location       *struct {
		Label string `json:"label"`
	} `json:"location"`
	TimeRange      string `json:"time_range"`
	DaysOfWeek     string `json:"days_of_week"`
	DateRangeStart string `json:"date_range_start"`
	DateRangeEnd   string `json:"date_range_end"`
}

type listResponse struct {
	Body struct {
		ActivityItems []rawActivity `json:"activity_items"`
		TotalRecords  int           `json:"total_records"`
	} `json:"body"`
}

// fetchPage posts the search request for one page. A body that fails to
// decode as JSON is an error regardless of which page it is.
func (c *Client) fetchPage(ctx context.Context, cfg Config, page int, window pool.DateRange) (listResponse, error) {
	ctx, span := tracer.Start(ctx, fmt.Sprintf("fetchPage %d", page))
	defer span.End()

	origin := ""
	if u, err := url.Parse(cfg.ApiURL); err == nil {
		origin = u.Scheme + "://" + u.Host
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Origin", origin).
		SetHeader("Referer", origin+"/").
		SetBody(searchRequest{
			ActivitySearchPattern: searchPattern{
				ActivitySelectParam:      2,
				ActivityCategoryIDs:      cfg.Filters.CategoryIDs,
				ActivityTypeIDs:          cfg.Filters.TypeIDs,
				ActivityOtherCategoryIDs: cfg.Filters.OtherCategoryIDs,
				DateAfter:                window.Start,
				DaysOfWeek:               "0000000",
			},
			Page: page,
		}).
		Post(cfg.ApiURL)
	if err != nil {
		span.SetStatus(codes.Error, "page request failed")
		return listResponse{}, err
	}

	var out listResponse
	err = json.Unmarshal(res.Body(), &out)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode page response")
		return listResponse{}, fmt.Errorf("decode page %d response: %w", page, err)
	}
	return out, nil
}

// Collect walks the paginated listing and returns the municipality's
// pools grouped by facility. A failure on page one propagates; a
// failure on a later page stops pagination and keeps what was already
// fetched.
func (c *Client) Collect(ctx context.Context, cfg Config, window pool.DateRange, classifier classify.Classifier) ([]pool.Pool, error) {
	ctx, span := tracer.Start(ctx, "Collect")
	defer span.End()

	first, err := c.fetchPage(ctx, cfg, 1, window)
	if err != nil {
		return nil, err
	}

	activities := first.Body.ActivityItems
	totalPages := (first.Body.TotalRecords + pageSize - 1) / pageSize
	slog.InfoContext(
		ctx, "fetched page",
		"source", cfg.Name, "page", 1, "total_pages", totalPages,
		"swims", len(first.Body.ActivityItems),
	)

	for page := 2; page <= totalPages && page <= maxPages; page++ {
		res, err := c.fetchPage(ctx, cfg, page, window)
		if err != nil {
			slog.WarnContext(
				ctx, "failed to fetch page, keeping partial results",
				"source", cfg.Name, "page", page, "err", err,
			)
			break
		}
		activities = append(activities, res.Body.ActivityItems...)
		slog.InfoContext(
			ctx, "fetched page",
			"source", cfg.Name, "page", page, "total_pages", totalPages,
			"swims", len(res.Body.ActivityItems),
		)
	}

	builder := pool.NewBuilder()
	for _, activity := range activities {
		builder.Add(mapActivity(cfg, activity, window, classifier))
	}
	return builder.Pools(), nil
}

func mapActivity(cfg Config, activity rawActivity, window pool.DateRange, classifier classify.Classifier) (pool.Pool, pool.Session) {
	location := "Unknown Location"
	if activity.Location != nil && activity.Location.Label != "" {
		location = activity.Location.Label
	}

	start, end := timetext.ParseTimeRange(activity.TimeRange)

	ageRestriction := activity.AgeDescription
	if ageRestriction == "" {
		ageRestriction = "All ages"
	}

	// the listing carries a recurring weekday rather than a concrete
	// date; when the platform omits its own date range the query
	// window's start stands in
	validFrom := activity.DateRangeStart
	if validFrom == "" {
		validFrom = window.Start
	}

	p := pool.Pool{
		ID:           pool.SlugID(cfg.Name, location),
		Name:         location,
		Municipality: cfg.Name,
		Province:     cfg.Province,
	}
	s := pool.Session{
		DayOfWeek:       timetext.ParseWeekday(activity.DaysOfWeek),
		SwimType:        activity.Name,
		IsChildFriendly: classifier.IsChildFriendly(activity.Name, activity.AgeDescription),
		StartTime:       start,
		EndTime:         end,
		AgeRestriction:  ageRestriction,
		DateRange:       pool.DateRange{Start: validFrom, End: activity.DateRangeEnd},
	}
	return p, s
}
