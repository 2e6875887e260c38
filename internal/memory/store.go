// Package memory provides the SQLite-backed knowledge store shared by
// the orchestrator and workers. Content is partitioned into namespaces,
// each with exactly one role allowed to perform destructive writes; all
// other roles may only append to their own per-role log namespace. The
// ownership map is enforced at the API boundary, not by convention.
package memory

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// ErrWriteOwnership indicates a write to a namespace by a non-owning
// role. These are programming errors and are rejected synchronously.
var ErrWriteOwnership = errors.New("write ownership violation")

// ErrUnknownNamespace indicates a read of a namespace never written.
var ErrUnknownNamespace = errors.New("unknown namespace")

// Built-in namespaces and their owning roles.
const (
	NamespaceArchitecture = "architecture"
	NamespaceDecisions    = "decisions"
	NamespaceFailures     = "failures"
	NamespaceWIP          = "wip"

	RoleLibrarian = "librarian"
	RoleConductor = "conductor"
)

// Ownership maps namespace -> the single role permitted destructive
// writes to it.
type Ownership map[string]string

// DefaultOwnership returns the standard write-ownership map: the
// librarian curates long-lived knowledge, the conductor owns in-flight
// coordination state.
func DefaultOwnership() Ownership {
	return Ownership{
		NamespaceArchitecture: RoleLibrarian,
		NamespaceFailures:     RoleLibrarian,
		NamespaceDecisions:    RoleConductor,
		NamespaceWIP:          RoleConductor,
	}
}

// LogNamespace returns the per-role append-only log namespace.
func LogNamespace(role string) string {
	return "log:" + role
}

// Document is one namespace's content.
type Document struct {
	Namespace   string    `json:"namespace"`
	Owner       string    `json:"owner"`
	Content     string    `json:"content"`
	LastUpdated time.Time `json:"last_updated"`
}

// Store wraps an SQLite database holding namespace documents and the
// request audit trail. Writes are serialized through a single mutex so
// two roles can never interleave partial writes to the same namespace.
type Store struct {
	conn   *sql.DB
	path   string
	owners Ownership
	mu     sync.Mutex
}

// Open opens (or creates) the store at path and applies migrations.
// WAL mode is enabled for concurrent reads.
func Open(path string, owners Ownership) (*Store, error) {
	if owners == nil {
		owners = DefaultOwnership()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{conn: conn, path: path, owners: owners}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies pending schema migrations.
func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Namespaces},
		{2, migrationV2Requests},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

const migrationV1Namespaces = `
CREATE TABLE IF NOT EXISTS namespaces (
	name TEXT PRIMARY KEY,
	owner TEXT NOT NULL,
	content TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL
);
`

const migrationV2Requests = `
CREATE TABLE IF NOT EXISTS requests (
	id TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	tier TEXT,
	state TEXT NOT NULL,
	reason TEXT,
	submitted_at DATETIME NOT NULL,
	closed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_requests_state ON requests(state);
`

// owner resolves the role allowed destructive writes to a namespace.
// Per-role log namespaces are owned by their role.
func (s *Store) owner(namespace string) string {
	if role, ok := s.owners[namespace]; ok {
		return role
	}
	if strings.HasPrefix(namespace, "log:") {
		return strings.TrimPrefix(namespace, "log:")
	}
	return ""
}

// Rewrite replaces a namespace's content wholesale. Only the owning
// role may do this; anyone else gets ErrWriteOwnership and the content
// is left untouched.
func (s *Store) Rewrite(role, namespace, content string) error {
	owner := s.owner(namespace)
	if owner == "" || owner != role {
		return fmt.Errorf("%w: role %s cannot rewrite namespace %s", ErrWriteOwnership, role, namespace)
	}
	return s.upsert(namespace, owner, content)
}

// Append adds an entry to a namespace without destroying prior content.
// The owning role may append anywhere it owns; every other role may
// only append to its own log namespace.
func (s *Store) Append(role, namespace, entry string) error {
	owner := s.owner(namespace)
	allowed := owner == role || namespace == LogNamespace(role)
	if !allowed {
		return fmt.Errorf("%w: role %s cannot append to namespace %s", ErrWriteOwnership, role, namespace)
	}
	if owner == "" {
		owner = role
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var content string
	err := s.conn.QueryRow("SELECT content FROM namespaces WHERE name = ?", namespace).Scan(&content)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read namespace %s: %w", namespace, err)
	}
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += entry
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return s.upsertLocked(namespace, owner, content)
}

// Read returns a namespace document. Namespaces are created lazily on
// first write, so reading one never written is ErrUnknownNamespace.
func (s *Store) Read(namespace string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var doc Document
	var updated string
	err := s.conn.QueryRow(
		"SELECT name, owner, content, updated_at FROM namespaces WHERE name = ?", namespace,
	).Scan(&doc.Namespace, &doc.Owner, &doc.Content, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s", ErrUnknownNamespace, namespace)
	}
	if err != nil {
		return Document{}, fmt.Errorf("read namespace %s: %w", namespace, err)
	}
	doc.LastUpdated, _ = time.Parse(time.RFC3339, updated)
	return doc, nil
}

// Namespaces returns every document in the store, sorted by name.
func (s *Store) Namespaces() ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.conn.Query("SELECT name, owner, content, updated_at FROM namespaces ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("list namespaces: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		var updated string
		if err := rows.Scan(&doc.Namespace, &doc.Owner, &doc.Content, &updated); err != nil {
			return nil, fmt.Errorf("scan namespace: %w", err)
		}
		doc.LastUpdated, _ = time.Parse(time.RFC3339, updated)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) upsert(namespace, owner, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(namespace, owner, content)
}

// upsertLocked writes a whole namespace document in one statement, so a
// reader never observes a partial write.
// Caller must hold s.mu.
func (s *Store) upsertLocked(namespace, owner, content string) error {
	_, err := s.conn.Exec(`
		INSERT INTO namespaces (name, owner, content, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at
	`, namespace, owner, content, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("write namespace %s: %w", namespace, err)
	}
	return nil
}
