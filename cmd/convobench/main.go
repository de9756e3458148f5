package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spachava753/convobench/internal/config"
	"github.com/spachava753/convobench/internal/domain"
	"github.com/spachava753/convobench/internal/domain/airline"
	"github.com/spachava753/convobench/internal/executor"
	"github.com/spachava753/convobench/internal/models"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: convobench <run.yaml>")
		os.Exit(1)
	}

	configPath := os.Args[1]

	// Setup context with manual signal handling
	ctx, cancel := context.WithCancel(context.Background())

	// Listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		signal.Stop(sigChan)
		cancel()
	}()

	go func() {
		sig := <-sigChan
		slog.Info("interrupt received, shutting down gracefully...", "signal", sig)
		cancel()
	}()

	cfg, err := config.LoadRunConfig(configPath)
	if err != nil {
		slog.Error("loading run config failed", "error", err)
		os.Exit(1)
	}

	provider, err := resolveDomain(cfg)
	if err != nil {
		slog.Error("resolving domain failed", "error", err)
		os.Exit(1)
	}

	runner := executor.NewRunner(cfg, provider, executor.OracleActors)
	result, err := runner.Run(ctx)
	if err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}

	// Print summary
	fmt.Printf("\nRun: %s\n", result.RunID)
	fmt.Printf("Domain: %s\n", result.Domain)
	fmt.Printf("Total trials: %d\n", result.TotalTrials)
	fmt.Printf("Completed: %d\n", result.CompletedTrials)
	fmt.Printf("Failed: %d\n", result.FailedTrials)
	fmt.Printf("Resumed: %d\n", result.ResumedTrials)
	fmt.Printf("Mean reward: %.4f\n", result.MeanReward)
	fmt.Printf("pass^k: %.4f\n", result.PassHatK)
	fmt.Printf("Duration: %.2fs\n", result.TotalDurationSec)

	if result.FailedTrials > 0 {
		os.Exit(1)
	}
}

// resolveDomain selects the provider for the run: a domain directory when
// configured, otherwise one of the domains compiled into the binary.
func resolveDomain(cfg models.RunConfig) (domain.Provider, error) {
	if cfg.DomainDir != "" {
		p, err := airline.NewFromDir(cfg.DomainDir)
		if err != nil {
			return nil, fmt.Errorf("loading domain from %s: %w", cfg.DomainDir, err)
		}
		if p.Name() != cfg.Domain {
			return nil, fmt.Errorf("domain dir %s holds %q, run config wants %q",
				cfg.DomainDir, p.Name(), cfg.Domain)
		}
		return p, nil
	}

	registry, err := builtinDomains()
	if err != nil {
		return nil, err
	}
	return registry.Get(cfg.Domain)
}

// builtinDomains registers every domain compiled into the binary.
func builtinDomains() (*domain.Registry, error) {
	registry := domain.NewRegistry()

	air, err := airline.New()
	if err != nil {
		return nil, fmt.Errorf("loading airline domain: %w", err)
	}
	registry.Register(air)

	return registry, nil
}
