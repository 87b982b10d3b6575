// Package main is the compliance platform's server entry point: it
// loads configuration, wires every collaborator described by SPEC_FULL.md,
// and serves the REST/WebSocket surface until an interrupt signal arrives.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gaigenticai/Regulens-sub011/internal/audit"
	"github.com/gaigenticai/Regulens-sub011/internal/collab"
	"github.com/gaigenticai/Regulens-sub011/internal/config"
	"github.com/gaigenticai/Regulens-sub011/internal/controlplane"
	"github.com/gaigenticai/Regulens-sub011/internal/httpapi"
	"github.com/gaigenticai/Regulens-sub011/internal/logging"
	"github.com/gaigenticai/Regulens-sub011/internal/metrics"
	"github.com/gaigenticai/Regulens-sub011/internal/metricsource"
	"github.com/gaigenticai/Regulens-sub011/internal/model"
	"github.com/gaigenticai/Regulens-sub011/internal/orchestrator"
	"github.com/gaigenticai/Regulens-sub011/internal/ratelimit"
	"github.com/gaigenticai/Regulens-sub011/internal/ruleengine"
	"github.com/gaigenticai/Regulens-sub011/internal/store"
	"github.com/gaigenticai/Regulens-sub011/internal/translator"
	"github.com/gaigenticai/Regulens-sub011/internal/wsfabric"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx := context.Background()

	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New("compliance-platform", cfg.Logging.Level, cfg.Logging.Format)
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	gateway := store.NewMemoryGateway()

	completions := make(chan model.AgentTask, cfg.Orchestrator.QueueCapacity)
	orch := orchestrator.New(orchestratorConfig(cfg), logger, m, func(task model.AgentTask) {
		completions <- task
	})
	if err := orch.Initialize(ctx); err != nil {
		log.Fatalf("orchestrator: %v", err)
	}
	go drainCompletions(logger, completions)

	events := orchestrator.NewBufferedEventSource()
	orch.SetEventSource(events)
	stopEventPolling := make(chan struct{})
	go pollPendingEvents(ctx, orch, logger, stopEventPolling)

	auditEngine := audit.New(gateway, logger, m)

	rules := ruleengine.New(ruleEngineConfig(cfg), gateway, auditEngine, nil, logger, m)
	rules.SetMetricSource(metricsource.NewRegistry())
	auditEngine.RegisterEntityApplier("RULE", rules.ApplyRollbackValue)
	if err := rules.ReloadRules(ctx); err != nil {
		logger.WithError(err).Warn("initial rule reload failed")
	}
	if cfg.RuleEngine.ReloadOnChange {
		if err := rules.StartAutoReload(ctx, cfg.RuleEngine.ReloadCron); err != nil {
			logger.WithError(err).Warn("rule auto-reload scheduler failed to start")
		}
	}

	xlate := translator.New(translatorConfig(cfg), gateway, logger, m)

	fabric := wsfabric.New(wsFabricConfig(cfg), logger, m, nil, nil)
	if err := fabric.Start(); err != nil {
		log.Fatalf("ws fabric: %v", err)
	}
	defer fabric.Stop()

	streamer := collab.New(fabric, logger)
	consensus := collab.NewConsensusHub(streamer)

	_ = controlplane.New() // wired for operators embedding this binary as a library; no REST surface per spec.md §6

	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerWindow: cfg.RateLimit.RequestsPerWindow,
		Window:            cfg.RateLimit.Window,
	})

	handler := httpapi.NewHandler(httpapi.Deps{
		Orchestrator: orch,
		EventSource:  events,
		Rules:        rules,
		Translator:   xlate,
		Audit:        auditEngine,
		Fabric:       fabric,
		Streamer:     streamer,
		Consensus:    consensus,
		Limiter:      limiter,
		Logger:       logger,
		Metrics:      m,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler.NewRouter())
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("server listening on %s", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	close(stopEventPolling)
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("graceful shutdown error")
	}
	rules.StopAutoReload()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("orchestrator shutdown error")
	}
}

func drainCompletions(logger *logging.Logger, completions <-chan model.AgentTask) {
	for task := range completions {
		logger.WithField("task_id", task.ID).WithField("status", string(task.Status)).Debug("task completed")
	}
}

// pollPendingEvents periodically calls Orchestrator.ProcessPendingEvents
// so events pushed to the BufferedEventSource (via POST
// /orchestrator/events) are drained, routed, and submitted even without a
// request in flight.
func pollPendingEvents(ctx context.Context, orch *orchestrator.Orchestrator, logger *logging.Logger, stop <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := orch.ProcessPendingEvents(ctx); err != nil {
				logger.WithError(err).Warn("process pending events failed")
			}
		case <-stop:
			return
		}
	}
}

func orchestratorConfig(cfg config.Config) orchestrator.Config {
	c := orchestrator.DefaultConfig()
	c.QueueCapacity = cfg.Orchestrator.QueueCapacity
	c.WorkerCount = cfg.Orchestrator.WorkerCount
	c.TaskTimeout = cfg.Orchestrator.TaskTimeout
	c.HealthCheckCron = cfg.Orchestrator.HealthCheckCron
	return c
}

func ruleEngineConfig(cfg config.Config) ruleengine.Config {
	c := ruleengine.DefaultConfig()
	c.ExecutionTimeout = cfg.RuleEngine.DefaultTimeout
	c.MaxParallelExecutions = cfg.RuleEngine.MaxConcurrency
	return c
}

func translatorConfig(cfg config.Config) translator.Config {
	c := translator.DefaultConfig()
	c.MaxBatchSize = cfg.Translator.MaxBatchSize
	c.TranslationTimeout = cfg.Translator.TranslateTimeout
	c.DefaultProtocol = cfg.Translator.DefaultProtocol
	c.ValidateSchemas = cfg.Translator.ValidateSchema
	return c
}

func wsFabricConfig(cfg config.Config) wsfabric.Config {
	c := wsfabric.DefaultConfig()
	c.HeartbeatCron = cfg.WSFabric.HeartbeatCron
	c.OutboundQueueSize = cfg.WSFabric.OutboundQueueSize
	c.ConnectionTimeout = cfg.WSFabric.WriteTimeout
	return c
}
