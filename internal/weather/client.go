package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"weatheragent/internal/config"
)

var (
	ErrNotConfigured  = errors.New("openweathermap api key is not configured")
	ErrProviderStatus = errors.New("weather provider returned non-success status")
	ErrCircuitOpen    = errors.New("weather provider circuit breaker open")
)

// StatusError carries the provider's status code and message.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %d", ErrProviderStatus, e.StatusCode)
	}
	return fmt.Sprintf("%s: %d (%s)", ErrProviderStatus, e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error { return ErrProviderStatus }

// Client talks to the OpenWeatherMap 2.5 REST API and returns raw payloads.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	circuit    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient builds a client from the weather configuration section.
func NewClient(cfg config.WeatherConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxReqs := cfg.BreakerMaxReqs
	if maxReqs == 0 {
		maxReqs = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout <= 0 {
		breakerTimeout = time.Minute
	}

	log := logger.With(zap.String("component", "openweathermap"))
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: maxReqs,
		Interval:    time.Minute,
		Timeout:     breakerTimeout,
		// 4xx answers (unknown city, bad key) say nothing about provider health.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.StatusCode < 500 && se.StatusCode != http.StatusTooManyRequests
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		circuit:    cb,
		logger:     log,
	}
}

// CurrentByCity fetches current conditions for a city name.
func (c *Client) CurrentByCity(ctx context.Context, city, units string) ([]byte, error) {
	values := url.Values{}
	values.Set("q", city)
	return c.get(ctx, "/weather", values, units)
}

// ForecastByCity fetches the 5 day / 3 hour forecast for a city name.
func (c *Client) ForecastByCity(ctx context.Context, city, units string) ([]byte, error) {
	values := url.Values{}
	values.Set("q", city)
	return c.get(ctx, "/forecast", values, units)
}

// CurrentByCoordinates fetches current conditions for a coordinate pair.
func (c *Client) CurrentByCoordinates(ctx context.Context, lat, lon float64, units string) ([]byte, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	return c.get(ctx, "/weather", values, units)
}

func (c *Client) get(ctx context.Context, path string, values url.Values, units string) ([]byte, error) {
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}
	if units == "" {
		units = "metric"
	}
	values.Set("appid", c.apiKey)
	values.Set("units", units)

	u := fmt.Sprintf("%s%s?%s", c.baseURL, path, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read weather response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &StatusError{
				StatusCode: resp.StatusCode,
				Message:    gjson.GetBytes(body, "message").String(),
			}
		}
		if !gjson.ValidBytes(body) {
			return nil, fmt.Errorf("weather provider returned invalid JSON")
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		c.logger.Debug("weather request failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

// Summary pulls a one-line description out of a current-conditions or forecast payload.
func Summary(payload []byte) string {
	if !gjson.ValidBytes(payload) {
		return ""
	}
	doc := gjson.ParseBytes(payload)

	// forecast payloads nest the city and list entries
	if doc.Get("list").Exists() {
		return fmt.Sprintf("%s: %d forecast points, first %.1f° %s",
			doc.Get("city.name").String(),
			len(doc.Get("list").Array()),
			doc.Get("list.0.main.temp").Float(),
			doc.Get("list.0.weather.0.description").String())
	}

	return fmt.Sprintf("%s: %.1f° %s",
		doc.Get("name").String(),
		doc.Get("main.temp").Float(),
		doc.Get("weather.0.description").String())
}
