package biz

import (
	"context"
	"time"

	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// QuoteFetcher is one provider client: a single fetch operation against
// one external source for one data category. A nil quote or non-nil error
// means "no quote, try the next source": clients absorb their expected
// failure modes (network error, timeout, malformed payload) and never
// panic for them.
type QuoteFetcher interface {
	Name() string
	Fetch(ctx context.Context) (*model.Quote, error)
}

// FallbackChain tries semantically-equivalent data sources in priority
// order until one succeeds, optionally returning a static last-resort
// value. Deterministic and stateless per call: no client failure is
// retried within the same invocation.
type FallbackChain struct {
	category string
	clients  []QuoteFetcher
	static   *model.Quote
	logger   *log.Helper
}

// NewFallbackChain creates a chain for a data category with clients in
// priority order.
func NewFallbackChain(category string, logger log.Logger, clients ...QuoteFetcher) *FallbackChain {
	return &FallbackChain{
		category: category,
		clients:  clients,
		logger:   log.NewHelper(logger),
	}
}

// WithStatic configures a last-resort value returned when every client
// fails. The returned quote is tagged with a "fallback" metadata marker.
func (c *FallbackChain) WithStatic(q *model.Quote) *FallbackChain {
	c.static = q
	return c
}

// Category returns the data category this chain serves.
func (c *FallbackChain) Category() string {
	return c.category
}

// Fetch invokes each client in order and returns the first quote
// obtained, short-circuiting so later clients are never tried. When all
// clients fail it returns the static last-resort value if configured,
// otherwise nil.
func (c *FallbackChain) Fetch(ctx context.Context) *model.Quote {
	for _, client := range c.clients {
		q, err := client.Fetch(ctx)
		if err != nil {
			c.logger.Warnw("provider client failed, trying next",
				"category", c.category,
				"client", client.Name(),
				"error", err)
			continue
		}
		if q == nil {
			c.logger.Warnw("provider client returned no quote, trying next",
				"category", c.category,
				"client", client.Name())
			continue
		}

		c.logger.Debugw("quote fetched",
			"category", c.category,
			"client", client.Name(),
			"value", q.Value)
		return q
	}

	if c.static != nil {
		c.logger.Warnw("all providers exhausted, serving static fallback",
			"category", c.category)
		q := c.static.WithMeta("fallback", "static")
		if q.ObservedAt.IsZero() {
			q.ObservedAt = time.Now()
		}
		return q
	}

	return nil
}
