package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	frankfurterURLFmt = "https://api.frankfurter.app/latest?from=USD&to=%s"
	openERAPIURL      = "https://open.er-api.com/v6/latest/USD"
)

// FrankfurterClient fetches the ECB daily USD reference rate for one
// target currency from frankfurter.app.
type FrankfurterClient struct {
	http     *http.Client
	symbol   string
	endpoint string
	logger   *log.Helper
}

// NewFrankfurterClient creates the frankfurter.app FX client.
func NewFrankfurterClient(client *http.Client, symbol string, logger log.Logger) *FrankfurterClient {
	return &FrankfurterClient{
		http:     client,
		symbol:   symbol,
		endpoint: fmt.Sprintf(frankfurterURLFmt, symbol),
		logger:   log.NewHelper(logger),
	}
}

// Name implements biz.QuoteFetcher.
func (c *FrankfurterClient) Name() string {
	return "frankfurter_fx"
}

// Fetch implements biz.QuoteFetcher.
func (c *FrankfurterClient) Fetch(ctx context.Context) (*model.Quote, error) {
	body, err := fetchBody(ctx, c.http, c.endpoint)
	if err != nil {
		c.logger.Warnw("frankfurter fetch failed", "error", err)
		return nil, err
	}

	var parsed struct {
		Date  string             `json:"date"`
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warnw("frankfurter returned malformed JSON", "error", err)
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}

	rate, ok := parsed.Rates[c.symbol]
	if !ok || rate <= 0 {
		return nil, fmt.Errorf("rate for %s missing from response", c.symbol)
	}

	observedAt := time.Now()
	if t, err := time.Parse("2006-01-02", parsed.Date); err == nil {
		observedAt = t
	}

	return &model.Quote{
		Category:   model.CategoryFxRate,
		Value:      rate,
		Unit:       c.symbol + "/USD",
		ObservedAt: observedAt,
		SourceName: c.Name(),
		SourceURL:  c.endpoint,
		RawPayload: string(body),
		Metadata:   map[string]string{"base": "USD", "reference": "ECB"},
	}, nil
}

// OpenERAPIClient fetches the USD reference rate from open.er-api.com,
// second in the chain behind the ECB feed.
type OpenERAPIClient struct {
	http     *http.Client
	symbol   string
	endpoint string
	logger   *log.Helper
}

// NewOpenERAPIClient creates the open.er-api.com FX client.
func NewOpenERAPIClient(client *http.Client, symbol string, logger log.Logger) *OpenERAPIClient {
	return &OpenERAPIClient{
		http:     client,
		symbol:   symbol,
		endpoint: openERAPIURL,
		logger:   log.NewHelper(logger),
	}
}

// Name implements biz.QuoteFetcher.
func (c *OpenERAPIClient) Name() string {
	return "open_er_api_fx"
}

// Fetch implements biz.QuoteFetcher.
func (c *OpenERAPIClient) Fetch(ctx context.Context) (*model.Quote, error) {
	body, err := fetchBody(ctx, c.http, c.endpoint)
	if err != nil {
		c.logger.Warnw("open.er-api fetch failed", "error", err)
		return nil, err
	}

	var parsed struct {
		Result             string             `json:"result"`
		TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
		Rates              map[string]float64 `json:"rates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warnw("open.er-api returned malformed JSON", "error", err)
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if parsed.Result != "success" {
		return nil, fmt.Errorf("api reported result %q", parsed.Result)
	}

	rate, ok := parsed.Rates[c.symbol]
	if !ok || rate <= 0 {
		return nil, fmt.Errorf("rate for %s missing from response", c.symbol)
	}

	observedAt := time.Now()
	if parsed.TimeLastUpdateUnix > 0 {
		observedAt = time.Unix(parsed.TimeLastUpdateUnix, 0)
	}

	return &model.Quote{
		Category:   model.CategoryFxRate,
		Value:      rate,
		Unit:       c.symbol + "/USD",
		ObservedAt: observedAt,
		SourceName: c.Name(),
		SourceURL:  c.endpoint,
		RawPayload: string(body),
		Metadata:   map[string]string{"base": "USD"},
	}, nil
}
