package orchestrator

import (
	"fmt"

	"github.com/podium-dev/podium/internal/graph"
	"github.com/podium-dev/podium/pkg/models"
)

// buildShape creates the task graph nodes for a classified request.
// The tier decides the shape:
//
//	trivial:   no tasks, the request resolves immediately
//	simple:    scan -> implement -> verify
//	complex:   scan -> plan -> {implement, tests} -> verify
//	ambiguous: complex shape (the plan gate forces clarification)
//	critical:  complex shape plus advocate and adversary review nodes
//	           that must both be done before implement is eligible
//
// Returns the IDs of the created tasks in creation order.
func buildShape(g *graph.Graph, req *models.Request) ([]string, error) {
	switch req.Tier {
	case models.TierTrivial:
		return nil, nil
	case models.TierSimple:
		return buildSimple(g, req)
	case models.TierComplex, models.TierAmbiguous:
		return buildComplex(g, req, false)
	case models.TierCritical:
		return buildComplex(g, req, true)
	default:
		return nil, fmt.Errorf("unknown tier %q", req.Tier)
	}
}

// buildSimple creates the linear 3-node chain.
func buildSimple(g *graph.Graph, req *models.Request) ([]string, error) {
	scan := newTask(req, models.TaskTypeScan, "Survey the area affected by: "+req.Description, nil, 0)
	implement := newTask(req, models.TaskTypeImplement, req.Description, []string{scan.ID}, 1)
	verify := newTask(req, models.TaskTypeVerify, "Verify the artifacts produced for: "+req.Description, []string{implement.ID}, 2)

	return addAll(g, scan, implement, verify)
}

// buildComplex creates the fan-out shape behind a gating plan node.
// With adversarial=true the implement node additionally waits on the
// advocate and adversary reviews.
func buildComplex(g *graph.Graph, req *models.Request, adversarial bool) ([]string, error) {
	scan := newTask(req, models.TaskTypeScan, "Survey the area affected by: "+req.Description, nil, 0)
	plan := newTask(req, models.TaskTypePlan, "Produce an implementation plan for: "+req.Description, []string{scan.ID}, 1)

	implementDeps := []string{plan.ID}
	tasks := []*models.Task{scan, plan}

	if adversarial {
		advocate := newTask(req, models.TaskTypeAdvocate, "Argue for the plan for: "+req.Description, []string{plan.ID}, 2)
		adversary := newTask(req, models.TaskTypeAdversary, "Argue against the plan for: "+req.Description, []string{plan.ID}, 2)
		implementDeps = append(implementDeps, advocate.ID, adversary.ID)
		tasks = append(tasks, advocate, adversary)
	}

	implement := newTask(req, models.TaskTypeImplement, req.Description, implementDeps, 3)
	tests := newTask(req, models.TaskTypeImplement, "Write tests for: "+req.Description, []string{plan.ID}, 3)
	verify := newTask(req, models.TaskTypeVerify, "Verify the artifacts produced for: "+req.Description, []string{implement.ID, tests.ID}, 4)
	tasks = append(tasks, implement, tests, verify)

	return addAll(g, tasks...)
}

// newTask builds a task node with routing tags derived from its type.
func newTask(req *models.Request, taskType models.TaskType, description string, dependsOn []string, priority int) *models.Task {
	return &models.Task{
		ID:          taskID(),
		RequestID:   req.ID,
		Description: description,
		Type:        taskType,
		DependsOn:   dependsOn,
		DomainTags:  routingTags(taskType, req.Metadata.DomainTags),
		Priority:    priority,
	}
}

// routingTags picks the capability tags a task is matched against.
// Implementation work routes by the request's own domain tags; the
// surrounding process nodes route by their function.
func routingTags(taskType models.TaskType, requestTags []string) []string {
	switch taskType {
	case models.TaskTypeScan:
		return []string{"scan", "research"}
	case models.TaskTypePlan:
		return []string{"plan", "design"}
	case models.TaskTypeVerify:
		return []string{"verification", "review"}
	case models.TaskTypeAdvocate, models.TaskTypeAdversary:
		return []string{"review", "design"}
	default:
		if len(requestTags) > 0 {
			return requestTags
		}
		return []string{"implement"}
	}
}

// addAll inserts tasks in order and returns their IDs.
func addAll(g *graph.Graph, tasks ...*models.Task) ([]string, error) {
	ids := make([]string, 0, len(tasks))
	for _, task := range tasks {
		if err := g.Add(task); err != nil {
			return nil, fmt.Errorf("build graph shape: %w", err)
		}
		ids = append(ids, task.ID)
	}
	return ids, nil
}
