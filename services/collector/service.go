// Package collector drives one end-to-end collection run: every
// configured source is scraped, the per-facility results are merged
// into one dataset, coordinates are attached and the summary metadata
// is computed.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gtapools-backend/lib/classify"
	"gtapools-backend/lib/coords"
	"gtapools-backend/lib/pool"
	"gtapools-backend/lib/scrapers/activenet"
	"gtapools-backend/lib/scrapers/perfectmind"
	"gtapools-backend/lib/timezone"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("services/collector")

type Service struct {
	config      Config
	coords      coords.Table
	windowStart time.Time
	perfectmind *perfectmind.Client
	activenet   *activenet.Client
}

// NewService validates the configuration up front so a malformed config
// fails before any network activity.
func NewService(config Config, table coords.Table) (*Service, error) {
	windowStart, err := config.validate()
	if err != nil {
		return nil, err
	}

	pm, err := perfectmind.NewClient()
	if err != nil {
		return nil, err
	}
	an, err := activenet.NewClient()
	if err != nil {
		return nil, err
	}

	return &Service{
		config:      config,
		coords:      table,
		windowStart: windowStart,
		perfectmind: pm,
		activenet:   an,
	}, nil
}

func (s *Service) classifierFor(src SourceConfig) classify.Classifier {
	// the two platforms disagree on what an unclassifiable session
	// means; that divergence is intentional and kept per source
	defaultWhenUnclassified := src.System == SystemActiveNet
	if src.DefaultWhenUnclassified != nil {
		defaultWhenUnclassified = *src.DefaultWhenUnclassified
	}
	return classify.Classifier{
		Include:                 s.config.ChildFriendlyTypes,
		Exclude:                 s.config.ExcludeTypes,
		DefaultWhenUnclassified: defaultWhenUnclassified,
	}
}

func (s *Service) collectSource(ctx context.Context, src SourceConfig) ([]pool.Pool, error) {
	province := src.Province
	if province == "" {
		province = "ON"
	}
	classifier := s.classifierFor(src)

	switch src.System {
	case SystemActiveNet:
		return s.activenet.Collect(ctx, activenet.Config{
			Name:     src.Name,
			Province: province,
			ApiURL:   src.ApiURL,
			Filters:  src.Filters,
		}, s.config.DateRange, classifier)
	default:
		return s.perfectmind.Collect(ctx, perfectmind.Config{
			Name:       src.Name,
			Province:   province,
			PageURL:    src.PageURL,
			ApiURL:     src.ApiURL,
			CalendarID: src.CalendarID,
			WidgetID:   src.WidgetID,
		}, s.config.DateRange, classifier)
	}
}

// Collect runs every configured source. A single source failing is
// logged and absorbed; the run continues with whatever the remaining
// sources return.
func (s *Service) Collect(ctx context.Context) pool.Dataset {
	ctx, span := tracer.Start(ctx, "Collect")
	defer span.End()

	keys := s.config.sourceKeys()
	results := make([][]pool.Pool, len(keys))

	collectOne := func(i int, key string) {
		src := s.config.Sources[key]
		slog.InfoContext(ctx, "collecting source", "source", src.Name, "system", src.System)

		pools, err := s.collectSource(ctx, src)
		if err != nil {
			slog.ErrorContext(ctx, "failed to collect source", "source", src.Name, "err", err)
			return
		}

		sessions := 0
		for _, p := range pools {
			sessions += len(p.Sessions)
		}
		slog.InfoContext(
			ctx, "collected source",
			"source", src.Name, "pools", len(pools), "sessions", sessions,
		)
		results[i] = pools
	}

	if s.config.Parallel {
		// sources have no data dependency on each other; results are
		// joined back into key order so the output stays deterministic
		wg := sync.WaitGroup{}
		for i, key := range keys {
			wg.Add(1)
			go func(i int, key string) {
				defer wg.Done()
				collectOne(i, key)
			}(i, key)
		}
		wg.Wait()
	} else {
		for i, key := range keys {
			collectOne(i, key)
		}
	}

	var all []pool.Pool
	for _, pools := range results {
		all = append(all, pools...)
	}
	if s.config.MergeDuplicateIDs {
		all = mergeByID(all)
	}

	s.coords.Annotate(all)

	return pool.Dataset{
		Metadata: s.metadata(all),
		Pools:    all,
	}
}

// mergeByID folds pools sharing an id into the first occurrence,
// appending sessions in arrival order.
func mergeByID(pools []pool.Pool) []pool.Pool {
	builder := pool.NewBuilder()
	for _, p := range pools {
		for _, s := range p.Sessions {
			builder.Add(p, s)
		}
	}
	return builder.Pools()
}

func (s *Service) metadata(pools []pool.Pool) pool.Metadata {
	totalSessions := 0
	childFriendly := 0
	for _, p := range pools {
		totalSessions += len(p.Sessions)
		for _, session := range p.Sessions {
			if session.IsChildFriendly {
				childFriendly++
			}
		}
	}

	now := timezone.Now()
	return pool.Metadata{
		LastUpdated:                now.Format("2006-01-02"),
		Season:                     pool.SeasonLabel(s.windowStart),
		CollectionTime:             now.Format(time.RFC3339),
		Sources:                    len(s.config.Sources),
		TotalPools:                 len(pools),
		TotalSessions:              totalSessions,
		TotalChildFriendlySessions: childFriendly,
	}
}
