package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/podium-dev/podium/pkg/models"
)

// workersFile is the YAML document declaring the worker roles the
// registry is populated with at startup.
type workersFile struct {
	Workers []models.WorkerSpec `yaml:"workers"`
}

// LoadWorkers reads worker role declarations from a YAML file.
func LoadWorkers(path string) ([]models.WorkerSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workers file: %w", err)
	}
	var doc workersFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse workers file %s: %w", path, err)
	}
	if len(doc.Workers) == 0 {
		return nil, fmt.Errorf("workers file %s declares no workers", path)
	}
	for i := range doc.Workers {
		if doc.Workers[i].Mode == "" {
			doc.Workers[i].Mode = models.ModeForeground
		}
	}
	return doc.Workers, nil
}

// DefaultWorkers returns the built-in worker set used when no workers
// file is configured. Script commands echo their assignment so the
// pipeline is runnable without any external tooling.
func DefaultWorkers() []models.WorkerSpec {
	return []models.WorkerSpec{
		{Name: "scout", CapabilityTags: []string{"scan", "research"}, Mode: models.ModeForeground, CostTier: 0, Command: `echo "scanned: $PODIUM_TASK"`},
		{Name: "builder", CapabilityTags: []string{"backend", "frontend", "implement"}, Mode: models.ModeBackground, CostTier: 1, Command: `echo "implemented: $PODIUM_TASK"`},
		{Name: "reviewer", CapabilityTags: []string{"review", "verification"}, Mode: models.ModeForeground, CostTier: 1, Command: `echo "reviewed: $PODIUM_TASK"`},
		{Name: "architect", CapabilityTags: []string{"plan", "design"}, Mode: models.ModeForeground, CostTier: 2, Command: `echo "planned: $PODIUM_TASK"`},
	}
}
