package orchestrator

import (
	"testing"

	"github.com/podium-dev/podium/internal/graph"
	"github.com/podium-dev/podium/pkg/models"
)

func request(tier models.Tier, tags ...string) *models.Request {
	return &models.Request{
		ID:       "req-1",
		Tier:     tier,
		Metadata: models.RequestMetadata{DomainTags: tags},
	}
}

func tasksByType(g *graph.Graph, requestID string) map[models.TaskType][]*models.Task {
	out := make(map[models.TaskType][]*models.Task)
	for _, task := range g.Tasks(requestID) {
		out[task.Type] = append(out[task.Type], task)
	}
	return out
}

func TestBuildShape_Trivial(t *testing.T) {
	g := graph.New(1)
	ids, err := buildShape(g, request(models.TierTrivial))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 || g.Size() != 0 {
		t.Errorf("trivial created %d tasks, want 0", g.Size())
	}
}

func TestBuildShape_Simple(t *testing.T) {
	g := graph.New(1)
	ids, err := buildShape(g, request(models.TierSimple, "backend"))
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Fatalf("simple created %d tasks, want 3", len(ids))
	}

	byType := tasksByType(g, "req-1")
	scan := byType[models.TaskTypeScan][0]
	implement := byType[models.TaskTypeImplement][0]
	verify := byType[models.TaskTypeVerify][0]

	if len(scan.DependsOn) != 0 {
		t.Errorf("scan has deps %v", scan.DependsOn)
	}
	if len(implement.DependsOn) != 1 || implement.DependsOn[0] != scan.ID {
		t.Errorf("implement deps = %v, want [%s]", implement.DependsOn, scan.ID)
	}
	if len(verify.DependsOn) != 1 || verify.DependsOn[0] != implement.ID {
		t.Errorf("verify deps = %v, want [%s]", verify.DependsOn, implement.ID)
	}

	// Implementation work routes by the request's domain tags.
	if len(implement.DomainTags) != 1 || implement.DomainTags[0] != "backend" {
		t.Errorf("implement tags = %v, want [backend]", implement.DomainTags)
	}

	// Only scan is ready at the start.
	ready := g.Ready()
	if len(ready) != 1 || ready[0].ID != scan.ID {
		t.Errorf("initial ready set wrong: %v", ready)
	}
}

func TestBuildShape_ComplexGatesOnPlan(t *testing.T) {
	g := graph.New(1)
	if _, err := buildShape(g, request(models.TierComplex)); err != nil {
		t.Fatal(err)
	}

	byType := tasksByType(g, "req-1")
	if len(byType[models.TaskTypePlan]) != 1 {
		t.Fatalf("complex shape has %d plan nodes, want 1", len(byType[models.TaskTypePlan]))
	}
	plan := byType[models.TaskTypePlan][0]

	// Both implement nodes wait on the plan.
	for _, impl := range byType[models.TaskTypeImplement] {
		found := false
		for _, dep := range impl.DependsOn {
			if dep == plan.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("implement node %s does not depend on plan", impl.ID)
		}
	}
	if len(byType[models.TaskTypeAdvocate])+len(byType[models.TaskTypeAdversary]) != 0 {
		t.Error("complex shape should not have review nodes")
	}
}

func TestBuildShape_AmbiguousUsesComplexShape(t *testing.T) {
	g := graph.New(1)
	if _, err := buildShape(g, request(models.TierAmbiguous)); err != nil {
		t.Fatal(err)
	}
	byType := tasksByType(g, "req-1")
	if len(byType[models.TaskTypePlan]) != 1 {
		t.Errorf("ambiguous shape missing plan gate")
	}
}

func TestBuildShape_CriticalAddsReviewNodes(t *testing.T) {
	g := graph.New(1)
	if _, err := buildShape(g, request(models.TierCritical)); err != nil {
		t.Fatal(err)
	}

	byType := tasksByType(g, "req-1")
	if len(byType[models.TaskTypeAdvocate]) != 1 || len(byType[models.TaskTypeAdversary]) != 1 {
		t.Fatal("critical shape missing advocate/adversary nodes")
	}
	advocate := byType[models.TaskTypeAdvocate][0]
	adversary := byType[models.TaskTypeAdversary][0]

	// The primary implement node (the request description itself) waits
	// on both reviews.
	var primary *models.Task
	for _, impl := range byType[models.TaskTypeImplement] {
		if len(impl.DependsOn) == 3 {
			primary = impl
		}
	}
	if primary == nil {
		t.Fatal("no implement node waiting on plan + both reviews")
	}
	deps := map[string]bool{}
	for _, dep := range primary.DependsOn {
		deps[dep] = true
	}
	if !deps[advocate.ID] || !deps[adversary.ID] {
		t.Errorf("implement deps %v missing review nodes", primary.DependsOn)
	}
}

func TestBuildShape_UnknownTier(t *testing.T) {
	g := graph.New(1)
	if _, err := buildShape(g, request(models.Tier("heroic"))); err == nil {
		t.Error("expected error for unknown tier")
	}
}
