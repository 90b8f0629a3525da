package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docledger/docledger/internal/apperrors"
	"github.com/docledger/docledger/internal/core/domain"
	portsrepo "github.com/docledger/docledger/internal/core/ports/repositories"
)

// Store is the in-memory document/graph store, used for tests and for running
// without Postgres. Relations keep insertion order so listings are
// deterministic.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	state *state
}

type state struct {
	docs     map[string]domain.Document
	docOrder []string
	rels     []domain.Relation
	current  map[string]string
	counters map[string]int64
	cursors  map[string]domain.Cursor
}

func newState() *state {
	return &state{
		docs:     make(map[string]domain.Document),
		current:  make(map[string]string),
		counters: make(map[string]int64),
		cursors:  make(map[string]domain.Cursor),
	}
}

func (st *state) clone() *state {
	c := &state{
		docs:     make(map[string]domain.Document, len(st.docs)),
		docOrder: append([]string(nil), st.docOrder...),
		rels:     append([]domain.Relation(nil), st.rels...),
		current:  make(map[string]string, len(st.current)),
		counters: make(map[string]int64, len(st.counters)),
		cursors:  make(map[string]domain.Cursor, len(st.cursors)),
	}
	for k, v := range st.docs {
		c.docs[k] = v
	}
	for k, v := range st.current {
		c.current[k] = v
	}
	for k, v := range st.counters {
		c.counters[k] = v
	}
	for k, v := range st.cursors {
		c.cursors[k] = v
	}
	return c
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{state: newState()}
}

var _ portsrepo.DocumentRepositoryWithTx = (*Store)(nil)

func (s *Store) SaveDocument(_ context.Context, doc domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.state.docs[doc.Hash]; exists {
		return nil
	}
	s.state.docs[doc.Hash] = doc
	s.state.docOrder = append(s.state.docOrder, doc.Hash)
	return nil
}

func (s *Store) FindDocumentByHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.state.docs[hash]
	if !ok {
		return nil, fmt.Errorf("%w: document %s", apperrors.ErrNotFound, hash)
	}
	return &doc, nil
}

func (s *Store) EraseDocument(_ context.Context, hash string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.docs[hash]; ok {
		delete(s.state.docs, hash)
		for i, h := range s.state.docOrder {
			if h == hash {
				s.state.docOrder = append(s.state.docOrder[:i], s.state.docOrder[i+1:]...)
				break
			}
		}
	}
	if cascade {
		kept := s.state.rels[:0]
		for _, rel := range s.state.rels {
			if rel.From == hash || rel.To == hash {
				continue
			}
			kept = append(kept, rel)
		}
		s.state.rels = kept
	}
	return nil
}

func (s *Store) Link(_ context.Context, _ string, from, to, kind, reverseKind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addRelation(domain.Relation{From: from, To: to, Kind: kind})
	s.addRelation(domain.Relation{From: to, To: from, Kind: reverseKind})
	return nil
}

func (s *Store) addRelation(rel domain.Relation) {
	for _, existing := range s.state.rels {
		if existing == rel {
			return
		}
	}
	s.state.rels = append(s.state.rels, rel)
}

func (s *Store) Unlink(_ context.Context, from, to, kind, reverseKind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	forward := domain.Relation{From: from, To: to, Kind: kind}
	reverse := domain.Relation{From: to, To: from, Kind: reverseKind}
	kept := s.state.rels[:0]
	for _, rel := range s.state.rels {
		if rel == forward || rel == reverse {
			continue
		}
		kept = append(kept, rel)
	}
	s.state.rels = kept
	return nil
}

func (s *Store) FindRelation(_ context.Context, from, kind string) (*domain.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rel := range s.state.rels {
		if rel.From == from && rel.Kind == kind {
			r := rel
			return &r, nil
		}
	}
	return nil, nil
}

func (s *Store) ListRelationsFrom(_ context.Context, from, kind string) ([]domain.Relation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Relation
	for _, rel := range s.state.rels {
		if rel.From == from && rel.Kind == kind {
			out = append(out, rel)
		}
	}
	return out, nil
}

func (s *Store) SetCurrentHash(_ context.Context, key, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.current[key] = hash
	return nil
}

func (s *Store) GetCurrentHash(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hash, ok := s.state.current[key]
	if !ok {
		return "", fmt.Errorf("%w: current hash for key %q", apperrors.ErrNotFound, key)
	}
	return hash, nil
}

func (s *Store) DeleteCurrentHash(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state.current, key)
	return nil
}

func (s *Store) IncrementCounter(_ context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.counters[name]++
	return s.state.counters[name], nil
}

func (s *Store) UpsertCursor(_ context.Context, cursor domain.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.cursors[cursor.Source] = cursor
	return nil
}

func (s *Store) FindCursorBySource(_ context.Context, source string) (*domain.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cursor, ok := s.state.cursors[source]
	if !ok {
		return nil, fmt.Errorf("%w: cursor for source %q", apperrors.ErrNotFound, source)
	}
	return &cursor, nil
}

func (s *Store) ListCursors(_ context.Context) ([]domain.Cursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Cursor, 0, len(s.state.cursors))
	for _, cursor := range s.state.cursors {
		out = append(out, cursor)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Source < out[j].Source })
	return out, nil
}

func (s *Store) ListDocumentsByType(_ context.Context, nodeType string, limit int) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Document
	for _, hash := range s.state.docOrder {
		if limit >= 0 && len(out) >= limit {
			break
		}
		doc := s.state.docs[hash]
		if domain.NodeType(doc) == nodeType {
			out = append(out, doc)
		}
	}
	return out, nil
}

// WithinTx runs fn against a private clone of the store state and swaps the
// clone in only when fn succeeds, giving all-or-nothing semantics.
// Transactions are serialized.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repo portsrepo.DocumentRepository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	txRepo := &Store{state: snapshot}
	if err := fn(ctx, txRepo); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = txRepo.state
	s.mu.Unlock()
	return nil
}
