package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/tidewatch/driftsim/internal/spill"
)

// SQLite persists step snapshots to a single table as JSON blobs keyed by
// (step, branch), so a run's history survives the process. Rewind clears
// the table, matching the replay contract.
type SQLite struct {
	db      *sql.DB
	enabled bool
}

// NewSQLite opens (or creates) the cache database at path. Use ":memory:"
// for an ephemeral database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS steps (
		step INTEGER NOT NULL,
		branch INTEGER NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (step, branch)
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create steps table: %w", err)
	}
	return &SQLite{db: db, enabled: true}, nil
}

// Close releases the underlying database.
func (s *SQLite) Close() error { return s.db.Close() }

// Enabled reports whether saves are retained.
func (s *SQLite) Enabled() bool { return s.enabled }

// SetEnabled toggles retention.
func (s *SQLite) SetEnabled(on bool) { s.enabled = on }

// Rewind clears every saved step.
func (s *SQLite) Rewind() {
	_, _ = s.db.Exec(`DELETE FROM steps`)
}

// SaveTimestep writes one JSON row per live container, replacing any prior
// save for the same step.
func (s *SQLite) SaveTimestep(step int, spills *spill.Pair) error {
	if !s.enabled {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("cache: begin save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM steps WHERE step = ?`, step); err != nil {
		return fmt.Errorf("cache: clear step %d: %w", step, err)
	}
	for branch, c := range spills.Items() {
		payload, err := json.Marshal(c.Snapshot())
		if err != nil {
			return fmt.Errorf("cache: encode step %d branch %d: %w", step, branch, err)
		}
		if _, err := tx.Exec(`INSERT INTO steps (step, branch, payload) VALUES (?, ?, ?)`,
			step, branch, payload); err != nil {
			return fmt.Errorf("cache: insert step %d branch %d: %w", step, branch, err)
		}
	}
	return tx.Commit()
}

// Load reads back the snapshots saved for the step, certain branch first.
func (s *SQLite) Load(step int) (*Step, error) {
	rows, err := s.db.Query(`SELECT payload FROM steps WHERE step = ? ORDER BY branch`, step)
	if err != nil {
		return nil, fmt.Errorf("cache: select step %d: %w", step, err)
	}
	defer rows.Close()

	st := &Step{Num: step}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("cache: scan step %d: %w", step, err)
		}
		var snap spill.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fmt.Errorf("cache: decode step %d: %w", step, err)
		}
		st.Snapshots = append(st.Snapshots, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache: read step %d: %w", step, err)
	}
	if len(st.Snapshots) == 0 {
		return nil, fmt.Errorf("%w %d", ErrNoStep, step)
	}
	return st, nil
}
