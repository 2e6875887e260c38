// Package registry holds the set of worker roles available for dispatch.
// The registry is populated once at process start from configuration and
// is read-only afterwards.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/podium-dev/podium/pkg/models"
)

// ErrDuplicateName indicates a second registration under an existing name.
var ErrDuplicateName = errors.New("worker name already registered")

// ErrSealed indicates a registration after the registry was sealed.
var ErrSealed = errors.New("registry is sealed")

// Registry maps worker names to their declared capabilities.
type Registry struct {
	mu     sync.RWMutex
	specs  map[string]models.WorkerSpec
	order  []string // registration order, for deterministic tie-breaks
	sealed bool
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{specs: make(map[string]models.WorkerSpec)}
}

// Register adds a worker role. Names are globally unique and specs are
// immutable once registered. Fails after Seal.
func (r *Registry) Register(spec models.WorkerSpec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %s", ErrSealed, spec.Name)
	}
	if spec.Name == "" {
		return errors.New("worker name is required")
	}
	if !spec.Mode.Valid() {
		return fmt.Errorf("worker %s: invalid concurrency mode %q", spec.Name, spec.Mode)
	}
	if _, exists := r.specs[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, spec.Name)
	}
	r.specs[spec.Name] = spec
	r.order = append(r.order, spec.Name)
	return nil
}

// Seal freezes the registry. All registration happens at startup;
// sealing turns later registrations into errors instead of races.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Match returns the roles whose capability tags intersect the requested
// domain tags, cheapest cost tier first. Ties are broken by registration
// order so fixtures stay reproducible.
func (r *Registry) Match(domainTags []string) []models.WorkerSpec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rank := make(map[string]int, len(r.order))
	for i, name := range r.order {
		rank[name] = i
	}

	var matched []models.WorkerSpec
	for _, name := range r.order {
		spec := r.specs[name]
		if spec.CanHandle(domainTags) {
			matched = append(matched, spec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].CostTier != matched[j].CostTier {
			return matched[i].CostTier < matched[j].CostTier
		}
		return rank[matched[i].Name] < rank[matched[j].Name]
	})
	return matched
}

// Get returns the spec for a name.
func (r *Registry) Get(name string) (models.WorkerSpec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[name]
	return spec, ok
}

// Names returns all registered names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered roles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
