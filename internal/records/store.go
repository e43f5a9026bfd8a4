// Package records persists diagnosed encounters. Records are append-only: the store
// offers no update or delete.
package records

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/breast-dx-server/internal/domain"
)

// Store defines the patient record storage operations.
type Store interface {
	// Insert persists a record and returns its id. Ids are assigned atomically and
	// increase strictly with each insert. rec.ID and rec.CreatedAt are filled in.
	Insert(ctx context.Context, rec *domain.PatientRecord) (int64, error)

	// FetchLatest returns the record with the highest id, or nil when the store is empty.
	FetchLatest(ctx context.Context) (*domain.PatientRecord, error)

	// FetchByID returns the record or nil when it does not exist.
	FetchByID(ctx context.Context, id int64) (*domain.PatientRecord, error)

	// List returns records newest first.
	List(ctx context.Context, limit, offset int) ([]*domain.PatientRecord, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int64, error)

	// Close releases the store's resources.
	Close() error
}

// Export is the JSON export format.
type Export struct {
	Version    string                  `json:"version"`
	ExportedAt time.Time               `json:"exported_at"`
	Count      int                     `json:"count"`
	Records    []*domain.PatientRecord `json:"records"`
}

// maxExportLimit is the maximum number of records exported at once.
const maxExportLimit = 1000000

// ExportJSON writes every record in the store, newest first.
func ExportJSON(ctx context.Context, s Store, w io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list records: %w", err)
	}

	export := &Export{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(all),
		Records:    all,
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func fault(op string, err error) error {
	return &domain.StorageFault{Op: op, Err: err}
}

// row carries the flat column form shared by the SQL stores.
type row struct {
	id             int64
	name           string
	age            *int64
	gender         string
	familyHistory  string
	symptoms       string
	previousCancer string
	clinicalData   string
	label          string
	diagnosis      string
	confidence     float64
	malignantProb  float64
	benignProb     float64
	riskScore      float64
	riskCategory   string
	modelVersion   string
	createdAt      time.Time
}

func toRow(rec *domain.PatientRecord) (*row, error) {
	data, err := json.Marshal(rec.Features)
	if err != nil {
		return nil, fmt.Errorf("encoding clinical data: %w", err)
	}

	r := &row{
		name:           rec.Metadata.DisplayName(),
		gender:         rec.Metadata.Gender,
		familyHistory:  rec.Metadata.FamilyHistory,
		symptoms:       rec.Metadata.Symptoms,
		previousCancer: rec.Metadata.PreviousCancer,
		clinicalData:   string(data),
		label:          rec.Decision.Label,
		diagnosis:      rec.Decision.Diagnosis,
		confidence:     rec.Decision.Confidence,
		malignantProb:  rec.Decision.MalignantProbability,
		benignProb:     rec.Decision.BenignProbability,
		riskScore:      rec.Decision.RiskScore,
		riskCategory:   string(rec.Decision.RiskCategory),
		modelVersion:   rec.Decision.ModelVersion,
		createdAt:      rec.CreatedAt,
	}
	if rec.Metadata.Age != nil {
		age := int64(*rec.Metadata.Age)
		r.age = &age
	}
	return r, nil
}

func (r *row) record() (*domain.PatientRecord, error) {
	var features domain.FeatureVector
	if err := json.Unmarshal([]byte(r.clinicalData), &features); err != nil {
		return nil, fmt.Errorf("decoding clinical data of record %d: %w", r.id, err)
	}

	rec := &domain.PatientRecord{
		ID: r.id,
		Metadata: domain.PatientMetadata{
			Name:           r.name,
			Gender:         r.gender,
			FamilyHistory:  r.familyHistory,
			Symptoms:       r.symptoms,
			PreviousCancer: r.previousCancer,
		},
		Features: features,
		Decision: domain.DiagnosisDecision{
			Label:                r.label,
			Diagnosis:            r.diagnosis,
			Malignant:            domain.IsMalignantDiagnosis(r.diagnosis),
			Confidence:           r.confidence,
			MalignantProbability: r.malignantProb,
			BenignProbability:    r.benignProb,
			RiskScore:            r.riskScore,
			RiskCategory:         domain.RiskCategory(r.riskCategory),
			ModelVersion:         r.modelVersion,
			DecidedAt:            r.createdAt,
		},
		CreatedAt: r.createdAt,
	}
	if r.age != nil {
		rec.Metadata.Age = domain.IntPtr(int(*r.age))
	}
	return rec, nil
}
