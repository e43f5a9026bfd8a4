package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/breast-dx-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite record store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection serialises writers, which keeps AUTOINCREMENT ids in commit order
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

const selectColumns = `
	id, name, age, gender, family_history, symptoms, previous_cancer,
	clinical_data, label, diagnosis, confidence, malignant_prob, benign_prob,
	risk_score, risk_category, model_version, created_at`

// scanSQLiteRecord scans a row into a flat record row.
func scanSQLiteRecord(s scanner) (*row, error) {
	r := &row{}
	var age sql.NullInt64
	var createdAt string

	err := s.Scan(
		&r.id, &r.name, &age, &r.gender, &r.familyHistory, &r.symptoms, &r.previousCancer,
		&r.clinicalData, &r.label, &r.diagnosis, &r.confidence, &r.malignantProb, &r.benignProb,
		&r.riskScore, &r.riskCategory, &r.modelVersion, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	if age.Valid {
		r.age = &age.Int64
	}
	r.createdAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at of record %d: %w", r.id, err)
	}
	return r, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS patients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		age INTEGER,
		gender TEXT DEFAULT '',
		family_history TEXT DEFAULT '',
		symptoms TEXT DEFAULT '',
		previous_cancer TEXT DEFAULT '',
		clinical_data TEXT NOT NULL,
		label TEXT NOT NULL,
		diagnosis TEXT NOT NULL,
		confidence REAL NOT NULL,
		malignant_prob REAL NOT NULL,
		benign_prob REAL NOT NULL,
		risk_score REAL NOT NULL,
		risk_category TEXT NOT NULL,
		model_version TEXT DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Insert appends a record.
func (s *SQLiteStore) Insert(ctx context.Context, rec *domain.PatientRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r, err := toRow(rec)
	if err != nil {
		return 0, fault("insert", err)
	}

	var age interface{}
	if r.age != nil {
		age = *r.age
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO patients (
			name, age, gender, family_history, symptoms, previous_cancer,
			clinical_data, label, diagnosis, confidence, malignant_prob, benign_prob,
			risk_score, risk_category, model_version, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.name, age, r.gender, r.familyHistory, r.symptoms, r.previousCancer,
		r.clinicalData, r.label, r.diagnosis, r.confidence, r.malignantProb, r.benignProb,
		r.riskScore, r.riskCategory, r.modelVersion, r.createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fault("insert", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fault("insert", fmt.Errorf("failed to get insert ID: %w", err))
	}
	rec.ID = id
	return id, nil
}

// FetchLatest returns the record with the highest id.
func (s *SQLiteStore) FetchLatest(ctx context.Context) (*domain.PatientRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM patients ORDER BY id DESC LIMIT 1`)
	return s.scanOne("fetch_latest", row)
}

// FetchByID returns a single record.
func (s *SQLiteStore) FetchByID(ctx context.Context, id int64) (*domain.PatientRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM patients WHERE id = ?`, id)
	return s.scanOne("fetch_by_id", row)
}

func (s *SQLiteStore) scanOne(op string, sc scanner) (*domain.PatientRecord, error) {
	r, err := scanSQLiteRecord(sc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fault(op, err)
	}
	rec, err := r.record()
	if err != nil {
		return nil, fault(op, err)
	}
	return rec, nil
}

// List returns records newest first with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*domain.PatientRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM patients ORDER BY id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fault("list", err)
	}
	defer rows.Close()

	var result []*domain.PatientRecord
	for rows.Next() {
		r, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fault("list", err)
		}
		rec, err := r.record()
		if err != nil {
			return nil, fault("list", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fault("list", err)
	}
	return result, nil
}

// Count returns the total number of records.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patients").Scan(&count); err != nil {
		return 0, fault("count", err)
	}
	return count, nil
}

// Ping checks the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
