// Package audit keeps a history of score and explain results per user.
package audit

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/liamcoop/credit/scoring"
)

var (
	ErrNotFound  = errors.New("decision not found")
	ErrDuplicate = errors.New("decision already recorded")
)

// DefaultListLimit caps ListByUser when the caller passes a non-positive limit
const DefaultListLimit = 50

type Kind string

const (
	KindScore   Kind = "score"
	KindExplain Kind = "explain"
)

// Record is one engine result as persisted. Explain records carry no risk,
// approval or loan amount.
type Record struct {
	ID              uuid.UUID        `json:"id"`
	Kind            Kind             `json:"kind"`
	UserID          string           `json:"user_id"`
	Mode            scoring.Mode     `json:"mode"`
	CreditScore     int              `json:"credit_score"`
	RiskLevel       scoring.RiskTier `json:"risk_level,omitempty"`
	Approved        bool             `json:"approved"`
	MaxLoanAmount   decimal.Decimal  `json:"max_loan_amount"`
	PositiveFactors []string         `json:"top_positive_factors,omitempty"`
	NegativeFactors []string         `json:"top_negative_factors,omitempty"`
	Narrative       string           `json:"narrative_explanation,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
}

func FromDecision(d *scoring.ScoreDecision) *Record {
	return &Record{
		Kind:          KindScore,
		UserID:        d.UserID,
		Mode:          d.Mode,
		CreditScore:   d.CreditScore,
		RiskLevel:     d.RiskLevel,
		Approved:      d.Approved,
		MaxLoanAmount: d.MaxLoanAmount,
	}
}

func FromExplanation(e *scoring.Explanation) *Record {
	return &Record{
		Kind:            KindExplain,
		UserID:          e.UserID,
		Mode:            e.Mode,
		CreditScore:     e.BaseScore,
		PositiveFactors: slices.Clone(e.PositiveFactors),
		NegativeFactors: slices.Clone(e.NegativeFactors),
		Narrative:       e.Narrative,
	}
}

// Store persists decision records
type Store interface {
	// Add assigns an ID and CreatedAt when they are unset
	Add(ctx context.Context, r *Record) error

	// Get returns ErrNotFound for an unknown ID
	Get(ctx context.Context, id uuid.UUID) (*Record, error)

	// ListByUser returns up to limit records, newest first
	ListByUser(ctx context.Context, userID string, limit int) ([]*Record, error)
}

func prepare(r *Record) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// InMemoryStore implements Store with a map guarded by an RWMutex
type InMemoryStore struct {
	records map[uuid.UUID]*Record
	byUser  map[string][]uuid.UUID
	mu      sync.RWMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[uuid.UUID]*Record),
		byUser:  make(map[string][]uuid.UUID),
	}
}

func (s *InMemoryStore) Add(_ context.Context, r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prepare(r)
	if _, exists := s.records[r.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, r.ID)
	}

	stored := *r
	s.records[r.ID] = &stored
	s.byUser[r.UserID] = append(s.byUser[r.UserID], r.ID)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.records[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	out := *r
	return &out, nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID string, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	out := make([]*Record, 0, min(len(ids), normalizeLimit(limit)))
	for i := len(ids) - 1; i >= 0 && len(out) < normalizeLimit(limit); i-- {
		r := *s.records[ids[i]]
		out = append(out, &r)
	}
	return out, nil
}
