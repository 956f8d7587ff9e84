package facts

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// Store keeps per-document rule snapshots (spending_rules,
// delegation_rules, approval_chain_rules, control_rules,
// exception_rules) in memory with a JSON file per document behind it,
// so compiled rules survive restarts.
type Store struct {
	mu    sync.Mutex
	dir   string
	cache *gocache.Cache
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create facts dir: %w", err)
	}
	return &Store{
		dir:   dir,
		cache: gocache.New(gocache.NoExpiration, 0),
	}, nil
}

func (s *Store) path(docID string) string {
	return filepath.Join(s.dir, docID+".json")
}

// Load returns all facts recorded for a document. Unknown documents
// yield an empty map.
func (s *Store) Load(docID string) map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(docID)
}

func (s *Store) loadLocked(docID string) map[string]interface{} {
	if cached, ok := s.cache.Get(docID); ok {
		return cached.(map[string]interface{})
	}
	facts := map[string]interface{}{}
	if raw, err := os.ReadFile(s.path(docID)); err == nil {
		// a corrupt file is treated as empty
		_ = json.Unmarshal(raw, &facts)
	}
	s.cache.Set(docID, facts, gocache.NoExpiration)
	return facts
}

// Upsert stores one fact key for a document and persists the whole
// document snapshot.
func (s *Store) Upsert(docID, key string, value interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	facts := s.loadLocked(docID)
	facts[key] = value

	raw, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return fmt.Errorf("encode facts for %s: %w", docID, err)
	}
	if err := os.WriteFile(s.path(docID), raw, 0o644); err != nil {
		return fmt.Errorf("persist facts for %s: %w", docID, err)
	}
	s.cache.Set(docID, facts, gocache.NoExpiration)
	return nil
}
