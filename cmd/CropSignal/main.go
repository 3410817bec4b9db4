// Package main is the entry point of the CropSignal service.
// It initializes the Kratos application with the HTTP server and the
// freshness-driven auto-refresh job.
package main

import (
	"flag"
	"os"

	"CropSignal/internal/conf"
	zapLogger "CropSignal/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = "CropSignal"
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server) *kratos.App {
	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
		),
	)
}

func main() {
	flag.Parse()

	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		// Use fallback logger before Zap is initialized
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLog.Sync()

	logger := zapLogger.NewKratosAdapter(zapLog)
	logger = log.With(logger,
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	log.NewHelper(logger).Infow(
		"msg", "CropSignal service starting",
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
		"log.output_file", bc.Log.OutputFile,
	)

	app, refresh, cleanup, err := wireApp(bc.Server, bc.Data, bc.Pipeline, logger)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	if c := StartAutoRefreshCron(bc.Pipeline, refresh, logger); c != nil {
		defer c.Stop()
	}

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		panic(err)
	}
}
