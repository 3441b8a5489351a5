// Package database implements the engine's Store on SQLite. Every record
// family lives in one database file so a staged mutation commits in a single
// transaction and treasury writes observe one global ordering.
package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"paracipher-go/internal/database/migrations"
	"paracipher-go/internal/engine"
	"paracipher-go/internal/model"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore implements the engine.Store interface using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens a SQLite-backed store.
// path can be a file path or ":memory:" for an in-memory ledger.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// NewSQLiteStoreFromDB wraps an existing connection. The caller is
// responsible for ensuring the connection is properly configured.
func NewSQLiteStoreFromDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// OpenConnection opens and configures a SQLite connection with the PRAGMAs
// the store relies on. Exported for tools and tests that need a properly
// configured connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	// SQLite ships with foreign keys off for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	// A single writer keeps Apply transactions strictly ordered.
	db.SetMaxOpenConns(1)

	return db, nil
}

// Policy operations

func (s *SQLiteStore) GetPolicy(identity string) (*model.Policy, error) {
	row := s.db.QueryRow(`
		SELECT holder, premium_paid, coverage_amount, start_time, end_time, is_active, has_claimed
		FROM policies WHERE holder = ?`, identity)

	var p model.Policy
	err := row.Scan(&p.Holder, &p.PremiumPaid, &p.CoverageAmount, &p.StartTime, &p.EndTime, &p.IsActive, &p.HasClaimed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding policy: %w", err)
	}
	return &p, nil
}

func upsertPolicy(tx *sql.Tx, p *model.Policy) error {
	_, err := tx.Exec(`
		INSERT INTO policies (holder, premium_paid, coverage_amount, start_time, end_time, is_active, has_claimed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (holder) DO UPDATE SET
			premium_paid = excluded.premium_paid,
			coverage_amount = excluded.coverage_amount,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			is_active = excluded.is_active,
			has_claimed = excluded.has_claimed`,
		p.Holder, p.PremiumPaid, p.CoverageAmount, p.StartTime, p.EndTime, p.IsActive, p.HasClaimed)
	if err != nil {
		return fmt.Errorf("writing policy: %w", err)
	}
	return nil
}

// Claim operations

func (s *SQLiteStore) GetClaim(identity string) (*model.Claim, error) {
	row := s.db.QueryRow(`
		SELECT worker, requested_amount, filed_at, processed_at, status, notes,
		       photo_ref, gps_latitude, gps_longitude, accident_timestamp, police_report_id, description,
		       evidence_ref
		FROM claims WHERE worker = ?`, identity)

	var (
		c           model.Claim
		processedAt sql.NullTime
		status      int64
		photoRef    sql.NullString
		lat         sql.NullString
		lon         sql.NullString
		accidentTS  sql.NullInt64
		reportID    sql.NullString
		description sql.NullString
	)
	err := row.Scan(&c.Worker, &c.RequestedAmount, &c.FiledAt, &processedAt, &status, &c.Notes,
		&photoRef, &lat, &lon, &accidentTS, &reportID, &description, &c.EvidenceRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding claim: %w", err)
	}

	c.Status = model.ClaimStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		c.ProcessedAt = &t
	}
	// Evidence columns are NULL for manually filed claims.
	if photoRef.Valid {
		c.Evidence = &model.ClaimEvidence{
			PhotoRef:          photoRef.String,
			GPSLatitude:       lat.String,
			GPSLongitude:      lon.String,
			AccidentTimestamp: accidentTS.Int64,
			PoliceReportID:    reportID.String,
			Description:       description.String,
		}
	}
	return &c, nil
}

func upsertClaim(tx *sql.Tx, c *model.Claim) error {
	var (
		processedAt sql.NullTime
		photoRef    sql.NullString
		lat         sql.NullString
		lon         sql.NullString
		accidentTS  sql.NullInt64
		reportID    sql.NullString
		description sql.NullString
	)
	if c.ProcessedAt != nil {
		processedAt = sql.NullTime{Time: *c.ProcessedAt, Valid: true}
	}
	if ev := c.Evidence; ev != nil {
		photoRef = sql.NullString{String: ev.PhotoRef, Valid: true}
		lat = sql.NullString{String: ev.GPSLatitude, Valid: true}
		lon = sql.NullString{String: ev.GPSLongitude, Valid: true}
		accidentTS = sql.NullInt64{Int64: ev.AccidentTimestamp, Valid: true}
		reportID = sql.NullString{String: ev.PoliceReportID, Valid: true}
		description = sql.NullString{String: ev.Description, Valid: true}
	}

	_, err := tx.Exec(`
		INSERT INTO claims (worker, requested_amount, filed_at, processed_at, status, notes,
		                    photo_ref, gps_latitude, gps_longitude, accident_timestamp, police_report_id, description,
		                    evidence_ref)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (worker) DO UPDATE SET
			requested_amount = excluded.requested_amount,
			filed_at = excluded.filed_at,
			processed_at = excluded.processed_at,
			status = excluded.status,
			notes = excluded.notes,
			photo_ref = excluded.photo_ref,
			gps_latitude = excluded.gps_latitude,
			gps_longitude = excluded.gps_longitude,
			accident_timestamp = excluded.accident_timestamp,
			police_report_id = excluded.police_report_id,
			description = excluded.description,
			evidence_ref = excluded.evidence_ref`,
		c.Worker, c.RequestedAmount, c.FiledAt, processedAt, int64(c.Status), c.Notes,
		photoRef, lat, lon, accidentTS, reportID, description, c.EvidenceRef)
	if err != nil {
		return fmt.Errorf("writing claim: %w", err)
	}
	return nil
}

// Reputation operations

func (s *SQLiteStore) GetReputation(identity string) (*model.ReputationRecord, error) {
	row := s.db.QueryRow(`
		SELECT worker, score, safe_days, total_claims
		FROM reputation WHERE worker = ?`, identity)

	var r model.ReputationRecord
	err := row.Scan(&r.Worker, &r.Score, &r.SafeDays, &r.TotalClaims)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("finding reputation: %w", err)
	}
	return &r, nil
}

func upsertReputation(tx *sql.Tx, r *model.ReputationRecord) error {
	_, err := tx.Exec(`
		INSERT INTO reputation (worker, score, safe_days, total_claims)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (worker) DO UPDATE SET
			score = excluded.score,
			safe_days = excluded.safe_days,
			total_claims = excluded.total_claims`,
		r.Worker, r.Score, r.SafeDays, r.TotalClaims)
	if err != nil {
		return fmt.Errorf("writing reputation: %w", err)
	}
	return nil
}

// Treasury operations

func (s *SQLiteStore) GetTreasury() (*model.Treasury, error) {
	row := s.db.QueryRow(`
		SELECT premium_balance, pool_balance, total_premiums_collected, total_claims_processed, total_claims_paid
		FROM treasury WHERE id = 1`)

	var t model.Treasury
	err := row.Scan(&t.PremiumBalance, &t.PoolBalance, &t.TotalPremiumsCollected, &t.TotalClaimsProcessed, &t.TotalClaimsPaid)
	if err != nil {
		return nil, fmt.Errorf("finding treasury: %w", err)
	}
	return &t, nil
}

func updateTreasury(tx *sql.Tx, t *model.Treasury) error {
	_, err := tx.Exec(`
		UPDATE treasury SET
			premium_balance = ?,
			pool_balance = ?,
			total_premiums_collected = ?,
			total_claims_processed = ?,
			total_claims_paid = ?
		WHERE id = 1`,
		t.PremiumBalance, t.PoolBalance, t.TotalPremiumsCollected, t.TotalClaimsProcessed, t.TotalClaimsPaid)
	if err != nil {
		return fmt.Errorf("writing treasury: %w", err)
	}
	return nil
}

// Transfer ledger

func (s *SQLiteStore) ListTransfers(party string, limit int) ([]*model.Transfer, error) {
	query := `
		SELECT ref, kind, party, amount, created_at
		FROM transfers WHERE party = ?
		ORDER BY created_at DESC, ref LIMIT ?`
	args := []any{party, limit}
	if party == "" {
		query = `
			SELECT ref, kind, party, amount, created_at
			FROM transfers
			ORDER BY created_at DESC, ref LIMIT ?`
		args = []any{limit}
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*model.Transfer
	for rows.Next() {
		var t model.Transfer
		var kind string
		if err := rows.Scan(&t.Ref, &kind, &t.Party, &t.Amount, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		t.Kind = model.TransferKind(kind)
		transfers = append(transfers, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	return transfers, nil
}

func insertTransfer(tx *sql.Tx, t *model.Transfer) error {
	_, err := tx.Exec(`
		INSERT INTO transfers (ref, kind, party, amount, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		t.Ref, string(t.Kind), t.Party, t.Amount, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("writing transfer: %w", err)
	}
	return nil
}

// Apply commits a staged mutation in a single transaction. Record writes
// land before the transfer entry so the ledger never shows a movement whose
// backing state change is missing.
func (s *SQLiteStore) Apply(m *engine.Mutation) error {
	if m.Empty() {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	if m.Claim != nil {
		if err := upsertClaim(tx, m.Claim); err != nil {
			return err
		}
	}
	if m.Policy != nil {
		if err := upsertPolicy(tx, m.Policy); err != nil {
			return err
		}
	}
	if m.Reputation != nil {
		if err := upsertReputation(tx, m.Reputation); err != nil {
			return err
		}
	}
	if m.Treasury != nil {
		if err := updateTreasury(tx, m.Treasury); err != nil {
			return err
		}
	}
	if m.Transfer != nil {
		if err := insertTransfer(tx, m.Transfer); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Operation journal

func (s *SQLiteStore) CreateOperation(operation, parameters string, startedAt time.Time) (*model.EngineOperation, error) {
	res, err := s.db.Exec(`
		INSERT INTO engine_operations (operation, parameters, started_at, status)
		VALUES (?, ?, ?, 'running')`,
		operation, parameters, startedAt)
	if err != nil {
		return nil, fmt.Errorf("creating operation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading operation id: %w", err)
	}
	return &model.EngineOperation{
		ID:         id,
		Operation:  operation,
		Parameters: parameters,
		StartedAt:  startedAt,
		Status:     "running",
	}, nil
}

func (s *SQLiteStore) FinishOperation(id int64, status string, finishedAt time.Time) error {
	_, err := s.db.Exec(`
		UPDATE engine_operations SET finished_at = ?, status = ? WHERE id = ?`,
		finishedAt, status, id)
	if err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListOperations(limit int) ([]*model.EngineOperation, error) {
	rows, err := s.db.Query(`
		SELECT id, operation, parameters, started_at, finished_at, status
		FROM engine_operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var ops []*model.EngineOperation
	for rows.Next() {
		var op model.EngineOperation
		var finishedAt sql.NullTime
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.StartedAt, &finishedAt, &op.Status); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finishedAt.Valid {
			t := finishedAt.Time
			op.FinishedAt = &t
		}
		ops = append(ops, &op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}

func (s *SQLiteStore) MaxOperationID() (int64, error) {
	var id sql.NullInt64
	err := s.db.QueryRow(`SELECT MAX(id) FROM engine_operations`).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("reading max operation id: %w", err)
	}
	return id.Int64, nil
}

// BackupTo creates a complete copy of the ledger at destPath using VACUUM INTO.
func (s *SQLiteStore) BackupTo(destPath string) error {
	if _, err := s.db.Exec("VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("snapshotting ledger: %w", err)
	}
	return nil
}

// Path returns the ledger file path ("" when wrapping an external connection).
func (s *SQLiteStore) Path() string { return s.path }

// CheckMigrations verifies the ledger schema is up to date.
func (s *SQLiteStore) CheckMigrations() error {
	return migrations.CheckStatus(s.db)
}

// Migrate brings the ledger schema to the latest version.
func (s *SQLiteStore) Migrate() error {
	return migrations.Up(s.db)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteStore implements the engine.Store interface.
var _ engine.Store = (*SQLiteStore)(nil)
