package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/podium-dev/podium/internal/bus"
	"github.com/podium-dev/podium/internal/config"
	"github.com/podium-dev/podium/internal/exec"
	"github.com/podium-dev/podium/internal/hooks"
	"github.com/podium-dev/podium/internal/memory"
	"github.com/podium-dev/podium/internal/orchestrator"
	"github.com/podium-dev/podium/internal/registry"
	"github.com/podium-dev/podium/internal/worker"
	"github.com/podium-dev/podium/pkg/models"
)

// runtime bundles everything a command needs to drive requests.
type runtime struct {
	cfg    *config.Config
	store  *memory.Store
	orch   *orchestrator.Orchestrator
	pool   *orchestrator.Pool
	logger *orchestrator.DebugLogger
}

// buildRuntime wires configuration, worker registry, memory store,
// hook runner, and orchestrator together for the current directory.
func buildRuntime(workersOverride string) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}

	specs, err := loadWorkerSpecs(cfg, workersOverride)
	if err != nil {
		return nil, err
	}
	reg := registry.New()
	for _, spec := range specs {
		if err := reg.Register(spec); err != nil {
			return nil, fmt.Errorf("register worker %s: %w", spec.Name, err)
		}
	}
	reg.Seal()

	store, err := memory.Open(memoryPath(cfg, cwd), memory.DefaultOwnership())
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	runner := exec.NewRunner()
	checker := hooks.NewRunner(runner,
		hooks.WithTimeout(cfg.Hooks.Timeout),
		hooks.WithExcerptLines(cfg.Hooks.ExcerptLines),
	)

	factory := &worker.DefaultFactory{
		Runner:  runner,
		WorkDir: cwd,
		Claude: worker.ClaudeConfigFrom(
			cfg.Anthropic.APIKey,
			cfg.Anthropic.Model,
			cfg.Anthropic.UseAWSBedrock,
			cfg.Anthropic.AWSRegion,
			cfg.Anthropic.AWSProfile,
		),
	}

	logger := orchestrator.NewDebugLoggerForDir(cwd)

	orch := orchestrator.New(
		orchestrator.RequiredConfig{
			Registry: reg,
			Factory:  factory,
			Hooks:    checker,
		},
		orchestrator.WithMemory(store),
		orchestrator.WithBus(bus.New(bus.WithMailboxCap(cfg.Bus.MailboxCap))),
		orchestrator.WithPlanGate(orchestrator.NewPlanGate(cfg.PlanGate.MaxFilesTouched, cfg.PlanGate.RiskAreas, store)),
		orchestrator.WithMaxRetries(cfg.Defaults.MaxRetries),
		orchestrator.WithLogger(logger),
	)

	return &runtime{
		cfg:    cfg,
		store:  store,
		orch:   orch,
		pool:   orchestrator.NewPool(orch),
		logger: logger,
	}, nil
}

// close releases the runtime's resources in dependency order.
func (r *runtime) close() {
	r.pool.Stop()
	r.store.Close()
	r.logger.Close()
}

// loadWorkerSpecs resolves the worker roster: an explicit flag wins,
// then the configured file, then built-in defaults.
func loadWorkerSpecs(cfg *config.Config, override string) ([]models.WorkerSpec, error) {
	path := override
	if path == "" {
		path = cfg.Defaults.WorkersFile
	}
	if path == "" {
		return config.DefaultWorkers(), nil
	}
	specs, err := config.LoadWorkers(path)
	if err != nil {
		return nil, fmt.Errorf("load workers from %s: %w", path, err)
	}
	return specs, nil
}

// memoryPath resolves the SQLite location, defaulting to the project's
// .podium directory.
func memoryPath(cfg *config.Config, cwd string) string {
	if cfg.Memory.Path != "" {
		return cfg.Memory.Path
	}
	return filepath.Join(cwd, ".podium", "memory.db")
}
