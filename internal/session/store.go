// Package session keeps the last diagnosis of each browser session. It is a cache in
// front of the record store: a miss or a failure here is never fatal to a request.
package session

import (
	"context"
	"time"

	"github.com/breast-dx-server/internal/domain"
)

// Snapshot is the last diagnosis made in a session.
type Snapshot struct {
	RecordID  int64                    `json:"id"`
	Metadata  domain.PatientMetadata   `json:"metadata"`
	Features  domain.FeatureVector     `json:"clinical_data"`
	Decision  domain.DiagnosisDecision `json:"decision"`
	CreatedAt time.Time                `json:"timestamp"`
}

// Store holds at most one snapshot per session. Put overwrites; the last write wins.
// Get returns (nil, nil) on a miss.
type Store interface {
	Put(ctx context.Context, sessionID string, snap *Snapshot) error
	Get(ctx context.Context, sessionID string) (*Snapshot, error)
	Close() error
}

// FromRecord builds a snapshot of a stored record.
func FromRecord(r *domain.PatientRecord) *Snapshot {
	return &Snapshot{
		RecordID:  r.ID,
		Metadata:  r.Metadata,
		Features:  r.Features.Clone(),
		Decision:  r.Decision,
		CreatedAt: r.CreatedAt,
	}
}

// Record converts the snapshot back into the record it was taken from.
func (s *Snapshot) Record() *domain.PatientRecord {
	return &domain.PatientRecord{
		ID:        s.RecordID,
		Metadata:  s.Metadata,
		Features:  s.Features.Clone(),
		Decision:  s.Decision,
		CreatedAt: s.CreatedAt,
	}
}

func (s *Snapshot) clone() *Snapshot {
	c := *s
	c.Features = s.Features.Clone()
	if s.Metadata.Age != nil {
		c.Metadata.Age = domain.IntPtr(*s.Metadata.Age)
	}
	return &c
}
