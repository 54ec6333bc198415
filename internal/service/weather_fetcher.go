package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"weatheragent/internal/metrics"
	"weatheragent/internal/model"
	"weatheragent/internal/weather"
)

// WeatherProvider is the part of the weather client the fetcher needs
type WeatherProvider interface {
	CurrentByCity(ctx context.Context, city, units string) ([]byte, error)
	ForecastByCity(ctx context.Context, city, units string) ([]byte, error)
}

// WeatherFetcher decides which provider calls an intent needs and runs them
type WeatherFetcher struct {
	provider WeatherProvider
	units    string
	logger   *zap.Logger
}

// NewWeatherFetcher creates a fetcher using the given units for every call
func NewWeatherFetcher(provider WeatherProvider, units string, logger *zap.Logger) *WeatherFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if units == "" {
		units = "metric"
	}
	return &WeatherFetcher{
		provider: provider,
		units:    units,
		logger:   logger.With(zap.String("component", "weather_fetcher")),
	}
}

// fetchPlan lists the calls one city needs.
type fetchPlan struct {
	current      bool
	forecast     bool
	specificTime string
}

// planFor applies the fetch rules. They are independent, so a comparison
// follow-up gets both payloads.
func planFor(intent *model.QueryIntent) fetchPlan {
	var p fetchPlan
	if intent.TimeContext == model.TimeCurrent {
		p.current = true
	}
	if intent.TimeContext == model.TimeFuture || intent.IsFollowUp {
		p.forecast = true
		p.specificTime = intent.SpecificTime
	}
	if intent.Compares() {
		p.current = true
		p.forecast = true
	}
	return p
}

// Fetch builds the bundle for every city. The first provider error cancels
// the remaining calls and is returned.
func (f *WeatherFetcher) Fetch(ctx context.Context, intent *model.QueryIntent) (model.WeatherBundle, error) {
	defer metrics.ObserveStage("fetch", time.Now())

	plan := planFor(intent)
	bundle := make(model.WeatherBundle, len(intent.Cities))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, city := range intent.Cities {
		if _, seen := bundle[city]; seen {
			continue
		}
		entry := &model.CityWeather{SpecificTimeRequest: plan.specificTime}
		bundle[city] = entry
		city := city

		if plan.current {
			g.Go(func() error {
				payload, err := f.provider.CurrentByCity(gctx, city, f.units)
				if err != nil {
					return fmt.Errorf("current weather for %s: %w", city, err)
				}
				mu.Lock()
				entry.Current = json.RawMessage(payload)
				mu.Unlock()
				f.logger.Debug("fetched current", zap.String("summary", weather.Summary(payload)))
				return nil
			})
		}
		if plan.forecast {
			g.Go(func() error {
				payload, err := f.provider.ForecastByCity(gctx, city, f.units)
				if err != nil {
					return fmt.Errorf("forecast for %s: %w", city, err)
				}
				mu.Lock()
				entry.Forecast = json.RawMessage(payload)
				mu.Unlock()
				f.logger.Debug("fetched forecast", zap.String("summary", weather.Summary(payload)))
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		metrics.ObserveUpstreamError("weather")
		return nil, err
	}
	return bundle, nil
}
