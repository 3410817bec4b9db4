//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"CropSignal/internal/biz"
	"CropSignal/internal/conf"
	"CropSignal/internal/data"
	"CropSignal/internal/provider"
	"CropSignal/internal/server"
	"CropSignal/internal/service"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

// wireApp init kratos application.
func wireApp(*conf.Server, *conf.Data, *conf.Pipeline, log.Logger) (*kratos.App, *biz.AutoRefreshTask, func(), error) {
	panic(wire.Build(
		data.ProviderSet,
		biz.ProviderSet,
		provider.NewChains,
		service.ProviderSet,
		server.ProviderSet,
		newApp,
	))
}
