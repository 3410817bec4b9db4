// Package provider implements the external data source clients feeding
// the acquisition pipeline. Each client wraps exactly one HTTP API for
// one data category; failure isolation and ordering live in the biz
// layer's fallback chains, not here.
package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"CropSignal/internal/biz"
	"CropSignal/internal/conf"
	"CropSignal/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/net/proxy"
)

const (
	// DefaultTimeout bounds every provider HTTP call.
	DefaultTimeout = 15 * time.Second

	// UserAgent identifies outbound requests.
	UserAgent = "CropSignal/1.0"

	// maxResponseBytes caps response reads against misbehaving feeds.
	maxResponseBytes = 1 << 20
)

// NewHTTPClient creates an HTTP client with a hard timeout and optional
// SOCKS5 or HTTP/HTTPS proxy support.
func NewHTTPClient(proxyURL string, timeout time.Duration) (*http.Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if proxyURL == "" {
		return &http.Client{Timeout: timeout}, nil
	}

	parsedProxy, err := url.Parse(proxyURL)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch parsedProxy.Scheme {
	case "socks5":
		return newSOCKS5Client(parsedProxy, timeout)
	case "http", "https":
		return &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyURL(parsedProxy),
			},
			Timeout: timeout,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported proxy scheme: %s", parsedProxy.Scheme)
	}
}

func newSOCKS5Client(proxyURL *url.URL, timeout time.Duration) (*http.Client, error) {
	var auth *proxy.Auth
	if proxyURL.User != nil {
		password, _ := proxyURL.User.Password()
		auth = &proxy.Auth{
			User:     proxyURL.User.Username(),
			Password: password,
		}
	}

	dialer, err := proxy.SOCKS5("tcp", proxyURL.Host, auth, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}

	return &http.Client{
		Transport: &http.Transport{
			Dial: dialer.Dial,
		},
		Timeout: timeout,
	}, nil
}

// fetchBody performs one GET and returns the response body. Non-200
// statuses are errors; the chain decides what happens next.
func fetchBody(ctx context.Context, client *http.Client, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json, text/csv, text/plain")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return body, nil
}

// NewChains builds the per-category fallback chains from configuration.
// Client order within each chain is the fallback priority.
func NewChains(c *conf.Pipeline, logger log.Logger) (*biz.Chains, error) {
	var (
		timeout  = DefaultTimeout
		proxyURL string
		p        *conf.Providers
	)
	if c != nil && c.Providers != nil {
		p = c.Providers
		if d := p.Timeout.AsDuration(); d > 0 {
			timeout = d
		}
		proxyURL = p.ProxyURL
	}

	client, err := NewHTTPClient(proxyURL, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider HTTP client: %w", err)
	}

	fxSymbol := "COP"
	lat, lon := 2.53, -75.52
	newsFeedURL := ""
	var coffeeStatic, fxStatic float64
	if p != nil {
		if p.FxSymbol != "" {
			fxSymbol = p.FxSymbol
		}
		if p.WeatherLatitude != 0 || p.WeatherLongitude != 0 {
			lat, lon = p.WeatherLatitude, p.WeatherLongitude
		}
		newsFeedURL = p.NewsFeedURL
		coffeeStatic = p.CoffeeStaticUSD
		fxStatic = p.FxStaticRate
	}

	coffee := biz.NewFallbackChain(model.CategoryCoffeePrice, logger,
		NewStooqCoffeeClient(client, logger),
		NewYahooCoffeeClient(client, logger),
	)
	if coffeeStatic > 0 {
		coffee = coffee.WithStatic(&model.Quote{
			Category:   model.CategoryCoffeePrice,
			Value:      coffeeStatic,
			Unit:       "USD/lb",
			SourceName: "static_config",
		})
	}

	fx := biz.NewFallbackChain(model.CategoryFxRate, logger,
		NewFrankfurterClient(client, fxSymbol, logger),
		NewOpenERAPIClient(client, fxSymbol, logger),
	)
	if fxStatic > 0 {
		fx = fx.WithStatic(&model.Quote{
			Category:   model.CategoryFxRate,
			Value:      fxStatic,
			Unit:       fxSymbol + "/USD",
			SourceName: "static_config",
		})
	}

	weather := biz.NewFallbackChain(model.CategoryWeather, logger,
		NewOpenMeteoClient(client, lat, lon, logger),
		NewWttrClient(client, lat, lon, logger),
	)

	news := biz.NewFallbackChain(model.CategoryNews, logger,
		NewGDELTNewsClient(client, newsFeedURL, logger),
	)

	return &biz.Chains{
		Coffee:  coffee,
		Fx:      fx,
		Weather: weather,
		News:    news,
	}, nil
}
