package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"ui-regression/internal/config"
	imagediff "ui-regression/internal/diff/image"
	"ui-regression/internal/myhttp"
	"ui-regression/internal/routes"
	"ui-regression/internal/runnable"
	"ui-regression/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/xerrors"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to a KEY=VALUE config file")
	flag.BoolVar(&runnable.Debug, "debug", false, "Enable text logging and pprof endpoints")
	flag.Parse()

	ctx := context.Background()

	c, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	server := runnable.NewServer("diff-server", "0.0.0.0:8383", func(mux *myhttp.Router, logger *slog.Logger) error {
		differ, err := imagediff.NewPixelDiff(c.DiffOptions())
		if err != nil {
			return xerrors.Errorf("failed to create differ: %w", err)
		}
		standards, err := storage.New(ctx, c.StorageBackend, c.ImageDir, storage.S3Config{
			Bucket:      c.S3Bucket,
			Prefix:      c.S3Prefix,
			EndpointURL: c.S3EndpointURL,
		})
		if err != nil {
			return xerrors.Errorf("failed to create storage backend: %w", err)
		}

		comparisons := routes.NewComparisonsCounter()
		if err := prometheus.DefaultRegisterer.Register(comparisons); err != nil {
			return xerrors.Errorf("failed to register counter: %w", err)
		}

		mux.HandleFuncWithMiddleware("POST /compare", routes.Compare(differ, comparisons))
		mux.HandleFuncWithMiddleware("GET /baselines/{key...}", routes.GetBaseline(standards))
		mux.HandleFuncWithMiddleware("PUT /baselines/{key...}", routes.PutBaseline(standards))
		logger.Info("routes registered", "storage", c.StorageBackend, "colorSpace", c.ColorSpace)
		return nil
	})
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
