package model

import "time"

// Data categories tracked by the acquisition pipeline.
const (
	CategoryCoffeePrice = "coffee_price"
	CategoryFxRate      = "fx_rate"
	CategoryWeather     = "weather"
	CategoryNews        = "news"
)

// Quote is a single observation fetched from an external source.
// It is immutable once returned by a provider client.
type Quote struct {
	Category   string            `json:"category"`
	Value      float64           `json:"value"`
	Unit       string            `json:"unit,omitempty"`
	ObservedAt time.Time         `json:"observed_at"`
	SourceName string            `json:"source_name"`
	SourceURL  string            `json:"source_url"`
	RawPayload string            `json:"raw_payload,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// IsFallback reports whether this quote is a configured last-resort value
// rather than a live observation.
func (q *Quote) IsFallback() bool {
	if q == nil || q.Metadata == nil {
		return false
	}
	return q.Metadata["fallback"] != ""
}

// WithMeta returns a copy of the quote with one metadata entry added.
// The receiver is not modified.
func (q Quote) WithMeta(key, value string) *Quote {
	meta := make(map[string]string, len(q.Metadata)+1)
	for k, v := range q.Metadata {
		meta[k] = v
	}
	meta[key] = value
	q.Metadata = meta
	return &q
}

// NewsItem is one headline extracted from a regional intelligence feed.
type NewsItem struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
}
