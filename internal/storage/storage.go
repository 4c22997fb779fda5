// Package storage provides SQLite-backed persistence for the reference
// snapshot and the decision history.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/marketsentry/btcsentry/internal/models"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db           *sql.DB
	maxDecisions int
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/btcsentry/data.db.
func New(maxDecisions int, dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "btcsentry", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, maxDecisions: maxDecisions}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS reference_snapshot (
			id               INTEGER PRIMARY KEY CHECK (id = 1),
			am_open          REAL,
			pm_open          REAL,
			last_update_date TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS decisions (
			id              TEXT PRIMARY KEY,
			status          TEXT NOT NULL,
			message         TEXT NOT NULL,
			current_price   REAL,
			reference_price REAL,
			move_percent    REAL,
			direction       TEXT,
			target_premium  REAL,
			target_lots     INTEGER,
			selected_option TEXT,
			error_kind      TEXT,
			evaluated_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_evaluated_at ON decisions(evaluated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_status ON decisions(status)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot reads the persisted reference snapshot. A missing row is
// equivalent to an empty snapshot, not an error.
func (s *Storage) LoadSnapshot() (*models.ReferenceSnapshot, error) {
	row := s.db.QueryRow(`SELECT am_open, pm_open, last_update_date FROM reference_snapshot WHERE id = 1`)

	var snap models.ReferenceSnapshot
	var amOpen, pmOpen sql.NullFloat64
	var lastUpdateDate sql.NullString

	err := row.Scan(&amOpen, &pmOpen, &lastUpdateDate)
	if err == sql.ErrNoRows {
		return &models.ReferenceSnapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if amOpen.Valid {
		v := amOpen.Float64
		snap.AMOpen = &v
	}
	if pmOpen.Valid {
		v := pmOpen.Float64
		snap.PMOpen = &v
	}
	if lastUpdateDate.Valid {
		snap.LastUpdateDate = lastUpdateDate.String
	}
	return &snap, nil
}

// StoreSnapshot persists the snapshot as a whole row. Partial-field
// updates would break the day-rollover invariant, so the full snapshot
// is always written as a unit.
func (s *Storage) StoreSnapshot(snap *models.ReferenceSnapshot) error {
	var amOpen, pmOpen sql.NullFloat64
	var lastUpdateDate sql.NullString

	if snap.AMOpen != nil {
		amOpen = sql.NullFloat64{Float64: *snap.AMOpen, Valid: true}
	}
	if snap.PMOpen != nil {
		pmOpen = sql.NullFloat64{Float64: *snap.PMOpen, Valid: true}
	}
	if snap.LastUpdateDate != "" {
		lastUpdateDate = sql.NullString{String: snap.LastUpdateDate, Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO reference_snapshot (id, am_open, pm_open, last_update_date)
		VALUES (1, ?, ?, ?)`,
		amOpen, pmOpen, lastUpdateDate,
	)
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}
	return nil
}

// AddDecision appends one evaluation outcome to the history.
func (s *Storage) AddDecision(d *models.Decision) error {
	var selectedJSON sql.NullString
	if d.SelectedOption != nil {
		raw, err := json.Marshal(d.SelectedOption)
		if err != nil {
			return fmt.Errorf("failed to marshal selected option: %w", err)
		}
		selectedJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO decisions
			(id, status, message, current_price, reference_price, move_percent,
			 direction, target_premium, target_lots, selected_option, error_kind, evaluated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		d.ID, string(d.Status), d.Message, d.CurrentPrice, d.ReferencePrice, d.MovePercent,
		string(d.Direction), d.TargetPremium, d.TargetLots, selectedJSON, d.ErrorKind,
		d.EvaluatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert decision: %w", err)
	}
	return nil
}

// RecentDecisions returns the newest k decisions, newest first.
func (s *Storage) RecentDecisions(k int) ([]models.Decision, error) {
	rows, err := s.db.Query(`
		SELECT id, status, message, current_price, reference_price, move_percent,
		       direction, target_premium, target_lots, selected_option, error_kind, evaluated_at
		FROM decisions ORDER BY evaluated_at DESC LIMIT ?`, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []models.Decision
	for rows.Next() {
		var d models.Decision
		var status, direction string
		var selectedJSON, errorKind sql.NullString
		var evaluatedAtNano int64

		err := rows.Scan(
			&d.ID, &status, &d.Message, &d.CurrentPrice, &d.ReferencePrice, &d.MovePercent,
			&direction, &d.TargetPremium, &d.TargetLots, &selectedJSON, &errorKind,
			&evaluatedAtNano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}

		d.Status = models.Status(status)
		d.Direction = models.Direction(direction)
		if errorKind.Valid {
			d.ErrorKind = errorKind.String
		}
		if selectedJSON.Valid && selectedJSON.String != "" {
			var opt models.OptionContract
			if err := json.Unmarshal([]byte(selectedJSON.String), &opt); err != nil {
				return nil, fmt.Errorf("failed to unmarshal selected option: %w", err)
			}
			d.SelectedOption = &opt
		}
		d.EvaluatedAt = time.Unix(0, evaluatedAtNano)
		decisions = append(decisions, d)
	}

	return decisions, rows.Err()
}

// RotateDecisions keeps at most maxDecisions newest decisions.
func (s *Storage) RotateDecisions() error {
	_, err := s.db.Exec(`
		DELETE FROM decisions WHERE id NOT IN (
			SELECT id FROM decisions ORDER BY evaluated_at DESC LIMIT ?
		)`, s.maxDecisions)
	if err != nil {
		return fmt.Errorf("failed to rotate decisions: %w", err)
	}
	return nil
}
