// Package perfectmind scrapes drop-in swim schedules from
// PerfectMind-hosted booking calendars (Oakville, Burlington). The
// platform gates its schedule endpoint behind an anti-forgery token
// embedded in the public calendar page, so every collection is a GET
// for the token followed by one form-encoded POST covering the whole
// date window.
package perfectmind

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/cookiejar"
	"time"

	"gtapools-backend/lib/classify"
	"gtapools-backend/lib/pool"
	"gtapools-backend/lib/telemetry"
	"gtapools-backend/lib/timetext"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/perfectmind")

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// Config identifies one PerfectMind-backed municipality.
type Config struct {
	Name       string `json:"name"`
	Province   string `json:"province"`
	PageURL    string `json:"page_url"`
	ApiURL     string `json:"api_url"`
	CalendarID string `json:"calendar_id"`
	WidgetID   string `json:"widget_id"`
}

type Client struct {
	http *resty.Client
}

func NewClient() (*Client, error) {
	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetHeader("user-agent", userAgent)
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/perfectmind/http")

	return &Client{http: client}, nil
}

// FetchToken pulls the __RequestVerificationToken hidden input off the
// public calendar page. A missing token is a hard failure for the
// source; the token page is stable within a run so there is nothing to
// retry.
func (c *Client) FetchToken(ctx context.Context, pageURL string) (string, error) {
	ctx, span := tracer.Start(ctx, "FetchToken")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8").
		Get(pageURL)
	if err != nil {
		span.SetStatus(codes.Error, "failed to fetch calendar page")
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		span.SetStatus(codes.Error, "failed to parse calendar page html")
		return "", err
	}

	token := doc.Find(`input[name="__RequestVerificationToken"]`).AttrOr("value", "")
	if token == "" {
		span.SetStatus(codes.Error, "token input missing")
		return "", fmt.Errorf("verification token not found in %s", pageURL)
	}
	return token, nil
}

// rawClass is one schedule entry as the widget endpoint returns it.
// Some deployments key the list as "classes"; json decoding matches
// field names case-insensitively so one struct covers both.
type rawClass struct {
	EventName          string      `json:"EventName"`
	Location           string      `json:"Location"`
	AgeRestrictions    string      `json:"AgeRestrictions"`
	OccurrenceDate     string      `json:"OccurrenceDate"`
	FormattedStartTime string      `json:"FormattedStartTime"`
	FormattedEndTime   string      `json:"FormattedEndTime"`
	Address            *rawAddress `json:"Address"`
}

type rawAddress struct {
	Street     string `json:"Street"`
	City       string `json:"City"`
	PostalCode string `json:"PostalCode"`
}

type scheduleResponse struct {
	Classes []rawClass `json:"Classes"`
}

// fetchSchedule issues the token-authenticated form POST for the whole
// date window. The platform returns the full result set at once, there
// is no pagination. A body that fails to decode as JSON is an error;
// a malformed payload cannot be partially trusted.
func (c *Client) fetchSchedule(ctx context.Context, cfg Config, token string, window pool.DateRange) (scheduleResponse, error) {
	ctx, span := tracer.Start(ctx, "FetchSchedule")
	defer span.End()

	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json, text/javascript, */*; q=0.01").
		SetHeader("X-Requested-With", "XMLHttpRequest").
		SetHeader("Referer", cfg.PageURL).
		SetFormData(map[string]string{
			"calendarId":               cfg.CalendarID,
			"widgetId":                 cfg.WidgetID,
			"page":                     "0",
			"values[1][Name]":          "Date Range",
			"values[1][Value]":         window.Start + "T00:00:00.000Z",
			"values[1][Value2]":        window.End + "T00:00:00.000Z",
			"values[1][ValueKind]":     "6",
			"RequestVerificationToken": token,
		}).
		Post(cfg.ApiURL)
	if err != nil {
		span.SetStatus(codes.Error, "schedule request failed")
		return scheduleResponse{}, err
	}

	var out scheduleResponse
	err = json.Unmarshal(res.Body(), &out)
	if err != nil {
		span.SetStatus(codes.Error, "failed to decode schedule response")
		return scheduleResponse{}, fmt.Errorf("decode schedule response: %w", err)
	}
	return out, nil
}

// Collect runs the full token + fetch + normalize sequence for one
// municipality and returns its pools grouped by facility.
func (c *Client) Collect(ctx context.Context, cfg Config, window pool.DateRange, classifier classify.Classifier) ([]pool.Pool, error) {
	ctx, span := tracer.Start(ctx, "Collect")
	defer span.End()

	token, err := c.FetchToken(ctx, cfg.PageURL)
	if err != nil {
		return nil, err
	}

	sched, err := c.fetchSchedule(ctx, cfg, token, window)
	if err != nil {
		return nil, err
	}

	builder := pool.NewBuilder()
	for _, entry := range sched.Classes {
		builder.Add(mapEntry(cfg, entry, classifier))
	}
	return builder.Pools(), nil
}

func mapEntry(cfg Config, entry rawClass, classifier classify.Classifier) (pool.Pool, pool.Session) {
	day := "Unknown"
	validFrom := ""
	validTo := ""
	date, err := time.Parse("20060102", entry.OccurrenceDate)
	if err == nil {
		day = date.Weekday().String()
		iso := date.Format("2006-01-02")
		validFrom, validTo = iso, iso
	}

	location := entry.Location
	if location == "" {
		location = "Unknown Location"
	}

	address := ""
	if entry.Address != nil {
		address = fmt.Sprintf(
			"%s, %s, %s %s",
			entry.Address.Street, entry.Address.City,
			cfg.Province, entry.Address.PostalCode,
		)
	}

	ageRestriction := entry.AgeRestrictions
	if ageRestriction == "" {
		ageRestriction = "All ages"
	}

	p := pool.Pool{
		ID:           pool.SlugID(cfg.Name, location),
		Name:         location,
		Municipality: cfg.Name,
		Province:     cfg.Province,
		Address:      address,
	}
	s := pool.Session{
		DayOfWeek:       day,
		SwimType:        entry.EventName,
		IsChildFriendly: classifier.IsChildFriendly(entry.EventName, entry.AgeRestrictions),
		StartTime:       timetext.ParseClockTime(entry.FormattedStartTime),
		EndTime:         timetext.ParseClockTime(entry.FormattedEndTime),
		AgeRestriction:  ageRestriction,
		DateRange:       pool.DateRange{Start: validFrom, End: validTo},
	}
	return p, s
}
