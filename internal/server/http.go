// Package server assembles the transport servers.
package server

import (
	"CropSignal/internal/conf"
	"CropSignal/internal/server/middleware"
	"CropSignal/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewHTTPServer)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(c *conf.Server, svc *service.PipelineService, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Logging(logger),
		),
	}
	if c.Http.Network != "" {
		opts = append(opts, http.Network(c.Http.Network))
	}
	if c.Http.Addr != "" {
		opts = append(opts, http.Address(c.Http.Addr))
	}
	if c.Http.Timeout != nil {
		opts = append(opts, http.Timeout(c.Http.Timeout.AsDuration()))
	}
	srv := http.NewServer(opts...)

	// Operator surface
	v1 := srv.Route("/api/v1")
	v1.GET("/breakers", svc.GetBreakers)
	v1.POST("/breakers/{provider}/reset", svc.ResetBreaker)
	v1.POST("/pipeline/run", svc.RunFullPipeline)
	v1.POST("/pipeline/market", svc.RunMarketPipeline)
	v1.POST("/pipeline/intelligence", svc.RunIntelligencePipeline)
	v1.GET("/freshness", svc.GetFreshness)
	v1.GET("/freshness/stale", svc.GetStaleEntities)
	v1.GET("/market/latest", svc.GetLatestQuote)

	root := srv.Route("/")
	root.GET("/healthz", svc.Healthz)

	return srv
}
