package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	openMeteoURLFmt = "https://api.open-meteo.com/v1/forecast?latitude=%.4f&longitude=%.4f&current=temperature_2m,precipitation"
	wttrURLFmt      = "https://wttr.in/%.4f,%.4f?format=j1"
)

// OpenMeteoClient fetches current conditions for the tracked growing
// region from Open-Meteo.
type OpenMeteoClient struct {
	http     *http.Client
	endpoint string
	logger   *log.Helper
}

// NewOpenMeteoClient creates the Open-Meteo weather client.
func NewOpenMeteoClient(client *http.Client, lat, lon float64, logger log.Logger) *OpenMeteoClient {
	return &OpenMeteoClient{
		http:     client,
		endpoint: fmt.Sprintf(openMeteoURLFmt, lat, lon),
		logger:   log.NewHelper(logger),
	}
}

// Name implements biz.QuoteFetcher.
func (c *OpenMeteoClient) Name() string {
	return "open_meteo"
}

// Fetch implements biz.QuoteFetcher. The quote value is the current
// temperature; precipitation rides along in metadata.
func (c *OpenMeteoClient) Fetch(ctx context.Context) (*model.Quote, error) {
	body, err := fetchBody(ctx, c.http, c.endpoint)
	if err != nil {
		c.logger.Warnw("open-meteo fetch failed", "error", err)
		return nil, err
	}

	var parsed struct {
		Current struct {
			Time          string   `json:"time"`
			Temperature   *float64 `json:"temperature_2m"`
			Precipitation float64  `json:"precipitation"`
		} `json:"current"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warnw("open-meteo returned malformed JSON", "error", err)
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if parsed.Current.Temperature == nil {
		return nil, fmt.Errorf("current temperature missing from response")
	}

	observedAt := time.Now()
	if t, err := time.Parse("2006-01-02T15:04", parsed.Current.Time); err == nil {
		observedAt = t
	}

	return &model.Quote{
		Category:   model.CategoryWeather,
		Value:      *parsed.Current.Temperature,
		Unit:       "C",
		ObservedAt: observedAt,
		SourceName: c.Name(),
		SourceURL:  c.endpoint,
		RawPayload: string(body),
		Metadata: map[string]string{
			"precipitation_mm": strconv.FormatFloat(parsed.Current.Precipitation, 'f', -1, 64),
		},
	}, nil
}

// WttrClient fetches current conditions from wttr.in's JSON surface,
// second in the chain behind Open-Meteo.
type WttrClient struct {
	http     *http.Client
	endpoint string
	logger   *log.Helper
}

// NewWttrClient creates the wttr.in weather client.
func NewWttrClient(client *http.Client, lat, lon float64, logger log.Logger) *WttrClient {
	return &WttrClient{
		http:     client,
		endpoint: fmt.Sprintf(wttrURLFmt, lat, lon),
		logger:   log.NewHelper(logger),
	}
}

// Name implements biz.QuoteFetcher.
func (c *WttrClient) Name() string {
	return "wttr_in"
}

// Fetch implements biz.QuoteFetcher. wttr.in reports numbers as strings.
func (c *WttrClient) Fetch(ctx context.Context) (*model.Quote, error) {
	body, err := fetchBody(ctx, c.http, c.endpoint)
	if err != nil {
		c.logger.Warnw("wttr.in fetch failed", "error", err)
		return nil, err
	}

	var parsed struct {
		CurrentCondition []struct {
			TempC    string `json:"temp_C"`
			PrecipMM string `json:"precipMM"`
		} `json:"current_condition"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warnw("wttr.in returned malformed JSON", "error", err)
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if len(parsed.CurrentCondition) == 0 {
		return nil, fmt.Errorf("current condition missing from response")
	}

	temp, err := strconv.ParseFloat(parsed.CurrentCondition[0].TempC, 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable temperature %q: %w", parsed.CurrentCondition[0].TempC, err)
	}

	return &model.Quote{
		Category:   model.CategoryWeather,
		Value:      temp,
		Unit:       "C",
		ObservedAt: time.Now(),
		SourceName: c.Name(),
		SourceURL:  c.endpoint,
		RawPayload: string(body),
		Metadata: map[string]string{
			"precipitation_mm": parsed.CurrentCondition[0].PrecipMM,
		},
	}, nil
}
