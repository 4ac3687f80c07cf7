package paper

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a paper ID is unknown.
var ErrNotFound = errors.New("paper not found")

// DefaultListLimit caps List when the caller passes a non-positive limit.
const DefaultListLimit = 100

// Paper is a generated paper with its provenance.
type Paper struct {
	ID        string    `json:"id"`
	CreatedBy string    `json:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Table     *Table    `json:"paper"`
}

// Summary describes a stored paper without its questions.
type Summary struct {
	ID            string    `json:"id"`
	CreatedBy     string    `json:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	QuestionCount int       `json:"question_count"`
}

// Store persists generated papers.
type Store interface {
	// Save stores p, assigning ID and CreatedAt when empty, and returns the ID.
	Save(ctx context.Context, p Paper) (string, error)
	Get(ctx context.Context, id string) (*Paper, error)
	// List returns the newest papers first. An empty createdBy lists all and
	// a non-positive limit means DefaultListLimit.
	List(ctx context.Context, createdBy string, limit int) ([]Summary, error)
}

// MemoryStore is an in-memory implementation of Store.
type MemoryStore struct {
	papers map[string]Paper
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory paper store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		papers: make(map[string]Paper),
	}
}

func (s *MemoryStore) Save(_ context.Context, p Paper) (string, error) {
	if p.Table == nil {
		return "", fmt.Errorf("paper has no table")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = generateID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Table = p.Table.Clone()
	s.papers[p.ID] = p
	return p.ID, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Paper, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.papers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	p.Table = p.Table.Clone()
	return &p, nil
}

func (s *MemoryStore) List(_ context.Context, createdBy string, limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.papers))
	for _, p := range s.papers {
		if createdBy != "" && p.CreatedBy != createdBy {
			continue
		}
		out = append(out, Summary{
			ID:            p.ID,
			CreatedBy:     p.CreatedBy,
			CreatedAt:     p.CreatedAt,
			QuestionCount: p.Table.Len(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func generateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x", b)
}
