package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/breast-dx-server/internal/domain"
)

// postgresSchema uses JSON rather than JSONB for clinical_data so key order survives.
const postgresSchema = `
	CREATE TABLE IF NOT EXISTS patients (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		age INTEGER,
		gender TEXT NOT NULL DEFAULT '',
		family_history TEXT NOT NULL DEFAULT '',
		symptoms TEXT NOT NULL DEFAULT '',
		previous_cancer TEXT NOT NULL DEFAULT '',
		clinical_data JSON NOT NULL,
		label TEXT NOT NULL,
		diagnosis TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		malignant_prob DOUBLE PRECISION NOT NULL,
		benign_prob DOUBLE PRECISION NOT NULL,
		risk_score DOUBLE PRECISION NOT NULL,
		risk_category TEXT NOT NULL,
		model_version TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_patients_created_at ON patients(created_at);
`

// PostgresStore implements the Store interface using PostgreSQL through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates the patients table if needed and returns a store on pool.
// The pool stays owned by the caller; Close does not close it.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// scanPostgresRecord scans a pgx row into a flat record row.
func scanPostgresRecord(s pgx.Row) (*row, error) {
	r := &row{}
	var age *int32

	err := s.Scan(
		&r.id, &r.name, &age, &r.gender, &r.familyHistory, &r.symptoms, &r.previousCancer,
		&r.clinicalData, &r.label, &r.diagnosis, &r.confidence, &r.malignantProb, &r.benignProb,
		&r.riskScore, &r.riskCategory, &r.modelVersion, &r.createdAt,
	)
	if err != nil {
		return nil, err
	}
	if age != nil {
		v := int64(*age)
		r.age = &v
	}
	r.createdAt = r.createdAt.UTC()
	return r, nil
}

// Insert appends a record using INSERT ... RETURNING.
func (s *PostgresStore) Insert(ctx context.Context, rec *domain.PatientRecord) (int64, error) {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r, err := toRow(rec)
	if err != nil {
		return 0, fault("insert", err)
	}

	var age *int32
	if r.age != nil {
		v := int32(*r.age)
		age = &v
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO patients (
			name, age, gender, family_history, symptoms, previous_cancer,
			clinical_data, label, diagnosis, confidence, malignant_prob, benign_prob,
			risk_score, risk_category, model_version, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`,
		r.name, age, r.gender, r.familyHistory, r.symptoms, r.previousCancer,
		[]byte(r.clinicalData), r.label, r.diagnosis, r.confidence, r.malignantProb, r.benignProb,
		r.riskScore, r.riskCategory, r.modelVersion, r.createdAt,
	).Scan(&id)
	if err != nil {
		return 0, fault("insert", err)
	}

	rec.ID = id
	return id, nil
}

// FetchLatest returns the record with the highest id.
func (s *PostgresStore) FetchLatest(ctx context.Context) (*domain.PatientRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM patients ORDER BY id DESC LIMIT 1`)
	return s.scanOne("fetch_latest", row)
}

// FetchByID returns a single record.
func (s *PostgresStore) FetchByID(ctx context.Context, id int64) (*domain.PatientRecord, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM patients WHERE id = $1`, id)
	return s.scanOne("fetch_by_id", row)
}

func (s *PostgresStore) scanOne(op string, sc pgx.Row) (*domain.PatientRecord, error) {
	r, err := scanPostgresRecord(sc)
	if errors.Is(err, pgx.ErrNoRows) {
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
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*domain.PatientRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM patients ORDER BY id DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fault("list", err)
	}
	defer rows.Close()

	var result []*domain.PatientRecord
	for rows.Next() {
		r, err := scanPostgresRecord(rows)
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM patients").Scan(&count); err != nil {
		return 0, fault("count", err)
	}
	return count, nil
}

// Ping checks the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close is a no-op; the pool belongs to the caller.
func (s *PostgresStore) Close() error {
	return nil
}
