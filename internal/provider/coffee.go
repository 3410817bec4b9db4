package provider

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// Coffee C futures endpoints. Both quote US cents per pound; clients
// normalize to USD/lb so downstream math has one unit.
const (
	stooqCoffeeURL = "https://stooq.com/q/l/?s=kc.f&f=sd2t2ohlcv&h&e=csv"
	yahooCoffeeURL = "https://query1.finance.yahoo.com/v8/finance/chart/KC=F"
)

// StooqCoffeeClient fetches the Coffee C futures quote from Stooq's CSV
// endpoint.
type StooqCoffeeClient struct {
	http     *http.Client
	endpoint string
	logger   *log.Helper
}

// NewStooqCoffeeClient creates the Stooq coffee price client.
func NewStooqCoffeeClient(client *http.Client, logger log.Logger) *StooqCoffeeClient {
	return &StooqCoffeeClient{
		http:     client,
		endpoint: stooqCoffeeURL,
		logger:   log.NewHelper(logger),
	}
}

// Name implements biz.QuoteFetcher.
func (c *StooqCoffeeClient) Name() string {
	return "stooq_coffee"
}

// Fetch implements biz.QuoteFetcher. The CSV layout is
// Symbol,Date,Time,Open,High,Low,Close,Volume with one header row.
func (c *StooqCoffeeClient) Fetch(ctx context.Context) (*model.Quote, error) {
	body, err := fetchBody(ctx, c.http, c.endpoint)
	if err != nil {
		c.logger.Warnw("stooq fetch failed", "error", err)
		return nil, err
	}

	records, err := csv.NewReader(strings.NewReader(string(body))).ReadAll()
	if err != nil {
		c.logger.Warnw("stooq returned malformed CSV", "error", err)
		return nil, fmt.Errorf("malformed CSV: %w", err)
	}
	if len(records) < 2 || len(records[1]) < 7 {
		return nil, fmt.Errorf("unexpected CSV shape: %d rows", len(records))
	}

	row := records[1]
	closeCents, err := strconv.ParseFloat(row[6], 64)
	if err != nil {
		return nil, fmt.Errorf("unparseable close price %q: %w", row[6], err)
	}

	observedAt := time.Now()
	if t, err := time.Parse("2006-01-02 15:04:05", row[1]+" "+row[2]); err == nil {
		observedAt = t
	}

	return &model.Quote{
		Category:   model.CategoryCoffeePrice,
		Value:      closeCents / 100, // cents/lb -> USD/lb
		Unit:       "USD/lb",
		ObservedAt: observedAt,
		SourceName: c.Name(),
		SourceURL:  c.endpoint,
		RawPayload: string(body),
		Metadata:   map[string]string{"symbol": row[0]},
	}, nil
}

// yahooChartResponse is the subset of Yahoo's chart payload we read.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
				Currency           string  `json:"currency"`
			} `json:"meta"`
		} `json:"result"`
	} `json:"chart"`
}

// YahooCoffeeClient fetches the Coffee C futures quote from Yahoo's chart
// endpoint. Second in the chain behind Stooq.
type YahooCoffeeClient struct {
	http     *http.Client
	endpoint string
	logger   *log.Helper
}

// NewYahooCoffeeClient creates the Yahoo coffee price client.
func NewYahooCoffeeClient(client *http.Client, logger log.Logger) *YahooCoffeeClient {
	return &YahooCoffeeClient{
		http:     client,
		endpoint: yahooCoffeeURL,
		logger:   log.NewHelper(logger),
	}
}

// Name implements biz.QuoteFetcher.
func (c *YahooCoffeeClient) Name() string {
	return "yahoo_coffee"
}

// Fetch implements biz.QuoteFetcher.
func (c *YahooCoffeeClient) Fetch(ctx context.Context) (*model.Quote, error) {
	body, err := fetchBody(ctx, c.http, c.endpoint)
	if err != nil {
		c.logger.Warnw("yahoo fetch failed", "error", err)
		return nil, err
	}

	var parsed yahooChartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warnw("yahoo returned malformed JSON", "error", err)
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart result is empty")
	}

	meta := parsed.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("missing regular market price")
	}

	observedAt := time.Now()
	if meta.RegularMarketTime > 0 {
		observedAt = time.Unix(meta.RegularMarketTime, 0)
	}

	return &model.Quote{
		Category:   model.CategoryCoffeePrice,
		Value:      meta.RegularMarketPrice / 100, // cents/lb -> USD/lb
		Unit:       "USD/lb",
		ObservedAt: observedAt,
		SourceName: c.Name(),
		SourceURL:  c.endpoint,
		RawPayload: string(body),
		Metadata:   map[string]string{"symbol": meta.Symbol, "currency": meta.Currency},
	}, nil
}
