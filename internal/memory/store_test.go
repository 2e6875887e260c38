package memory

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/podium-dev/podium/pkg/models"
)

// setupTestStore creates a temporary store with default ownership.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "memory.db"), nil)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "memory.db")
	store, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	if store.Path() != path {
		t.Errorf("Path() = %q, want %q", store.Path(), path)
	}
}

func TestRewrite_OwnerOnly(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Rewrite(RoleLibrarian, NamespaceArchitecture, "v1"); err != nil {
		t.Fatalf("owner rewrite: %v", err)
	}

	// The conductor does not own architecture; the write must be
	// rejected and the content left untouched.
	err := s.Rewrite(RoleConductor, NamespaceArchitecture, "hijacked")
	if !errors.Is(err, ErrWriteOwnership) {
		t.Fatalf("expected ErrWriteOwnership, got %v", err)
	}

	doc, err := s.Read(NamespaceArchitecture)
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "v1" {
		t.Errorf("content after rejected write = %q, want v1", doc.Content)
	}
	if doc.Owner != RoleLibrarian {
		t.Errorf("owner = %q, want librarian", doc.Owner)
	}
}

func TestAppend_PreservesPriorContent(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Append(RoleLibrarian, NamespaceFailures, "- first failure"); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(RoleLibrarian, NamespaceFailures, "- second failure"); err != nil {
		t.Fatal(err)
	}

	doc, err := s.Read(NamespaceFailures)
	if err != nil {
		t.Fatal(err)
	}
	want := "- first failure\n- second failure\n"
	if doc.Content != want {
		t.Errorf("content = %q, want %q", doc.Content, want)
	}
}

func TestAppend_NonOwnerRejected(t *testing.T) {
	s := setupTestStore(t)

	err := s.Append("builder", NamespaceDecisions, "- sneaky decision")
	if !errors.Is(err, ErrWriteOwnership) {
		t.Fatalf("expected ErrWriteOwnership, got %v", err)
	}
	if _, err := s.Read(NamespaceDecisions); !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("namespace was created by a rejected write: %v", err)
	}
}

func TestAppend_OwnLogNamespace(t *testing.T) {
	s := setupTestStore(t)

	// Any role may append to its own log namespace only.
	if err := s.Append("builder", LogNamespace("builder"), "- did work"); err != nil {
		t.Fatalf("own log append: %v", err)
	}
	if err := s.Append("builder", LogNamespace("scout"), "- impersonation"); !errors.Is(err, ErrWriteOwnership) {
		t.Errorf("expected ErrWriteOwnership for foreign log, got %v", err)
	}

	doc, err := s.Read(LogNamespace("builder"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Owner != "builder" {
		t.Errorf("log owner = %q, want builder", doc.Owner)
	}
}

func TestRewrite_LogNamespaceByItsRole(t *testing.T) {
	s := setupTestStore(t)

	if err := s.Append("scout", LogNamespace("scout"), "- old"); err != nil {
		t.Fatal(err)
	}
	if err := s.Rewrite("scout", LogNamespace("scout"), ""); err != nil {
		t.Fatalf("role rewriting its own log: %v", err)
	}
	doc, err := s.Read(LogNamespace("scout"))
	if err != nil {
		t.Fatal(err)
	}
	if doc.Content != "" {
		t.Errorf("content = %q, want empty", doc.Content)
	}
}

func TestRead_UnknownNamespace(t *testing.T) {
	s := setupTestStore(t)
	if _, err := s.Read("never-written"); !errors.Is(err, ErrUnknownNamespace) {
		t.Errorf("expected ErrUnknownNamespace, got %v", err)
	}
}

func TestNamespaces_SortedByName(t *testing.T) {
	s := setupTestStore(t)
	if err := s.Rewrite(RoleConductor, NamespaceWIP, "x"); err != nil {
		t.Fatal(err)
	}
	if err := s.Rewrite(RoleLibrarian, NamespaceArchitecture, "y"); err != nil {
		t.Fatal(err)
	}

	docs, err := s.Namespaces()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d namespaces, want 2", len(docs))
	}
	if docs[0].Namespace != NamespaceArchitecture {
		t.Errorf("first namespace = %s, want architecture", docs[0].Namespace)
	}
}

func TestRequests_AuditTrail(t *testing.T) {
	s := setupTestStore(t)

	now := time.Now()
	closed := now.Add(time.Minute)
	first := &models.Request{
		ID:          "req-1",
		Description: "add login endpoint",
		Tier:        models.TierSimple,
		State:       models.RequestClosed,
		SubmittedAt: now,
		ClosedAt:    &closed,
	}
	if err := s.RecordRequest(first); err != nil {
		t.Fatalf("record: %v", err)
	}
	second := &models.Request{
		ID:          "req-2",
		Description: "rewrite auth",
		Tier:        models.TierCritical,
		State:       models.RequestClosed,
		SubmittedAt: now.Add(time.Second),
	}
	if err := s.RecordRequest(second); err != nil {
		t.Fatal(err)
	}
	if err := s.SetRequestReason("req-2", "adversary review rated RECONSIDER"); err != nil {
		t.Fatal(err)
	}

	rows, err := s.Requests(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].ID != "req-2" {
		t.Errorf("rows not newest-first: first is %s", rows[0].ID)
	}
	if rows[0].Reason != "adversary review rated RECONSIDER" {
		t.Errorf("reason = %q", rows[0].Reason)
	}
	if rows[1].ClosedAt == nil {
		t.Error("req-1 ClosedAt lost")
	}

	limited, err := s.Requests(1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Errorf("Requests(1) = %d rows, want 1", len(limited))
	}
}
