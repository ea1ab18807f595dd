// Command server runs the research HTTP service.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/dshills/researchgraph/config"
	"github.com/dshills/researchgraph/graph"
	"github.com/dshills/researchgraph/graph/emit"
	"github.com/dshills/researchgraph/llm"
	"github.com/dshills/researchgraph/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	llmClient, err := llm.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		logger.Error("llm client init failed", "error", err)
		os.Exit(1)
	}

	// Tracer provider for the run-event spans; without a configured
	// exporter spans stay in-process, which keeps tracing opt-in.
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			logger.Error("tracer shutdown failed", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	metrics := graph.NewMetrics(registry)

	// Every run's events reach the process log and the tracer in
	// addition to whatever per-request emitter the handler supplies.
	ambient := emit.NewMultiEmitter(
		emit.NewLogEmitter(os.Stdout, true),
		emit.NewOTelEmitter(tp.Tracer("researchgraph")),
	)

	srv := server.New(cfg, logger, registry, server.NewRunner(cfg, llmClient, metrics, ambient))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))
	srv.RegisterRoutes(r)

	logger.Info("starting research service", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
