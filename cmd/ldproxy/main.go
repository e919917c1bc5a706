// Ldproxy is a linked-data transcoding server. It converts JSON-LD and RDF
// documents between serializations by content negotiation and proxies
// remote linked-data resources, rewriting their identifiers so that links
// resolve through the proxy.
//
// Routes:
//
//	PUT|POST /echo/          transcode the request body
//	GET      /proxy/{url}    fetch, normalize and rewrite a remote resource
//	GET      /formats        list the registered codecs
//	GET      /healthz        liveness
//	GET      /metrics        Prometheus metrics
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/geoknoesis/ldproxy/internal/codec"
	"github.com/geoknoesis/ldproxy/internal/config"
	"github.com/geoknoesis/ldproxy/internal/formats"
	"github.com/geoknoesis/ldproxy/internal/jsonld"
	"github.com/geoknoesis/ldproxy/internal/metric"
	"github.com/geoknoesis/ldproxy/internal/negotiate"
	"github.com/geoknoesis/ldproxy/internal/server"
	"github.com/geoknoesis/ldproxy/internal/transcode"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var flags config.Flags
	fs := pflag.NewFlagSet("ldproxy", pflag.ContinueOnError)
	flags.AddFlags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	cfg, err := flags.Load()
	if err != nil {
		return err
	}

	logger, err := cfg.Log.NewLogger()
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	metrics := metric.NewRegistry()

	pipeline, err := jsonld.NewPipeline(
		jsonld.WithDefaultContext(cfg.DefaultContext),
		jsonld.WithLogger(logger.Named("jsonld")),
		jsonld.WithArtifactObserver(metrics.Metrics().SerializationArtifact),
	)
	if err != nil {
		return err
	}

	registry := codec.NewRegistry(
		codec.WithLogger(logger.Named("codec")),
		codec.WithNameFilter(cfg.Codecs.Enabled),
	)
	registered := registry.Discover(formats.Candidates(formats.Deps{
		Pipeline: pipeline,
		Logger:   logger.Named("formats"),
	}))
	registry.Freeze()
	for _, d := range registered {
		logger.Info("Codec registered", zap.String("codec", d.Name), zap.Strings("mimetypes", d.Mimetypes))
	}

	negotiator, err := negotiate.New(registry, negotiate.WithDefault(cfg.DefaultFormat))
	if err != nil {
		return err
	}

	service := transcode.NewService(negotiator, pipeline,
		transcode.WithFetcher(transcode.NewHTTPFetcher(cfg.Fetch.Timeout, cfg.Fetch.MaxBodyBytes)),
		transcode.WithLogger(logger.Named("transcode")),
		transcode.WithMetrics(metrics.Metrics()),
		transcode.WithPassthroughTypes(cfg.PassthroughTypes),
	)

	srv, err := server.New(server.Config{
		ListenAddress: cfg.ListenAddress,
		PublicBaseURL: cfg.PublicBaseURL,
		Gzip:          cfg.Server.Gzip,
		MaxBodyBytes:  cfg.Fetch.MaxBodyBytes,
		Logger:        logger.Named("server"),
	}, service, registry, metrics)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting ldproxy",
		zap.String("listen_address", cfg.ListenAddress),
		zap.String("default_format", negotiator.DefaultName()),
		zap.String("default_context", pipeline.DefaultContextURL()))
	return srv.ListenAndServe(ctx)
}
