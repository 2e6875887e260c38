package memory

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/podium-dev/podium/pkg/models"
)

// RecordRequest inserts or refreshes a request's audit row.
func (s *Store) RecordRequest(req *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closedAt any
	if req.ClosedAt != nil {
		closedAt = req.ClosedAt.UTC().Format(time.RFC3339)
	}
	_, err := s.conn.Exec(`
		INSERT INTO requests (id, description, tier, state, submitted_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET tier = excluded.tier, state = excluded.state, closed_at = excluded.closed_at
	`, req.ID, req.Description, string(req.Tier), string(req.State),
		req.SubmittedAt.UTC().Format(time.RFC3339), closedAt)
	if err != nil {
		return fmt.Errorf("record request %s: %w", req.ID, err)
	}
	return nil
}

// SetRequestReason records why a request escalated or failed.
func (s *Store) SetRequestReason(requestID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec("UPDATE requests SET reason = ? WHERE id = ?", reason, requestID)
	if err != nil {
		return fmt.Errorf("set reason for request %s: %w", requestID, err)
	}
	return nil
}

// RequestRow is one audit row from the requests table.
type RequestRow struct {
	ID          string
	Description string
	Tier        string
	State       string
	Reason      string
	SubmittedAt time.Time
	ClosedAt    *time.Time
}

// Requests returns audit rows, newest first, up to limit (0 for all).
func (s *Store) Requests(limit int) ([]RequestRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := "SELECT id, description, tier, state, COALESCE(reason, ''), submitted_at, closed_at FROM requests ORDER BY submitted_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	var out []RequestRow
	for rows.Next() {
		var r RequestRow
		var submitted string
		var closed sql.NullString
		if err := rows.Scan(&r.ID, &r.Description, &r.Tier, &r.State, &r.Reason, &submitted, &closed); err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		r.SubmittedAt, _ = time.Parse(time.RFC3339, submitted)
		if closed.Valid {
			if t, err := time.Parse(time.RFC3339, closed.String); err == nil {
				r.ClosedAt = &t
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
