// Package main implements the nexus-agent entry point: it loads
// configuration, wires the child lifecycle core's external collaborators,
// and exposes the Prometheus metrics endpoint. The replication protocol,
// RPC surface, and network transport that would drive the core in
// production are out of scope here (see the accompanying design notes).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nexus-storage/nexus-core/pkg/config"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/klog/v2"
)

// Build-time variables set via -ldflags.
var (
	version   = "dev"
	gitCommit = "unknown"
)

var (
	configPath  = flag.String("config", "", "Path to the agent configuration file")
	metricsAddr = flag.String("metrics-addr", "", "Address to expose Prometheus metrics (overrides config file)")
	showVersion = flag.Bool("show-version", false, "Show version and exit")
	debug       = flag.Bool("debug", false, "Enable debug logging (equivalent to -v=4)")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	if *debug || os.Getenv("DEBUG_NEXUS_AGENT") == "1" {
		if err := flag.Set("v", "4"); err != nil {
			klog.Warningf("failed to set verbosity level: %v", err)
		}
	}

	if *showVersion {
		fmt.Printf("nexus-agent version: %s (commit: %s, %s)\n", version, gitCommit, runtime.Version())
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		klog.Fatalf("failed to load configuration: %v", err)
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	klog.Infof("starting nexus-agent %s (commit: %s)", version, gitCommit)
	klog.V(4).Infof("configuration: %+v", cfg)

	agent := newAgent(cfg)
	klog.V(4).Infof("agent ready: breaker enabled=%v", agent.childBreaker != nil)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		klog.Infof("starting metrics server on %s", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			klog.Errorf("metrics server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	klog.Info("shutting down nexus-agent")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		klog.Errorf("error shutting down metrics server: %v", err)
	}
}
