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

const defaultGDELTURL = "https://api.gdeltproject.org/api/v2/doc/doc?query=%22coffee%22%20%22colombia%22&mode=artlist&format=json&maxrecords=25"

// GDELTNewsClient fetches regional coffee-trade headlines from the GDELT
// document API. The quote's raw payload carries the normalized JSON array
// of items for NewsRepo.SaveFeed; the value is the headline count.
type GDELTNewsClient struct {
	http     *http.Client
	endpoint string
	logger   *log.Helper
}

// NewGDELTNewsClient creates the GDELT news client. An empty endpoint
// uses the default regional query.
func NewGDELTNewsClient(client *http.Client, endpoint string, logger log.Logger) *GDELTNewsClient {
	if endpoint == "" {
		endpoint = defaultGDELTURL
	}
	return &GDELTNewsClient{
		http:     client,
		endpoint: endpoint,
		logger:   log.NewHelper(logger),
	}
}

// Name implements biz.QuoteFetcher.
func (c *GDELTNewsClient) Name() string {
	return "gdelt_news"
}

// Fetch implements biz.QuoteFetcher.
func (c *GDELTNewsClient) Fetch(ctx context.Context) (*model.Quote, error) {
	body, err := fetchBody(ctx, c.http, c.endpoint)
	if err != nil {
		c.logger.Warnw("gdelt fetch failed", "error", err)
		return nil, err
	}

	var parsed struct {
		Articles []struct {
			URL      string `json:"url"`
			Title    string `json:"title"`
			SeenDate string `json:"seendate"`
			Domain   string `json:"domain"`
		} `json:"articles"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.logger.Warnw("gdelt returned malformed JSON", "error", err)
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if len(parsed.Articles) == 0 {
		return nil, fmt.Errorf("no articles in response")
	}

	items := make([]model.NewsItem, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		if a.URL == "" || a.Title == "" {
			continue
		}
		publishedAt := time.Now()
		if t, err := time.Parse("20060102T150405Z", a.SeenDate); err == nil {
			publishedAt = t
		}
		items = append(items, model.NewsItem{
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Domain,
			PublishedAt: publishedAt,
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("no usable articles in response")
	}

	payload, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize articles: %w", err)
	}

	return &model.Quote{
		Category:   model.CategoryNews,
		Value:      float64(len(items)),
		Unit:       "articles",
		ObservedAt: time.Now(),
		SourceName: c.Name(),
		SourceURL:  c.endpoint,
		RawPayload: string(payload),
		Metadata:   map[string]string{"article_count": strconv.Itoa(len(items))},
	}, nil
}
