package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	spendPolicyFile     = "spend_policy.json"
	delegationRulesFile = "delegation_rules.json"
)

// defaultPolicyText seeds first-run deployments with the standard
// policy: a $20,000 procurement threshold with dual signatures and RFP
// above it, and the usual separation-of-duties pairs.
const defaultPolicyText = `Purchases of $20,000 or more require an RFP.
Two signatures are required on all cheques.
Spending authority and payment authority are subject to separation of duties.
Bank reconciliation must be independent of payment.`

// Store holds the active spend policy and delegation rules, backed by
// JSON files on disk. Readers get the in-memory snapshot; compiling or
// reloading swaps it atomically.
type Store struct {
	mu  sync.RWMutex
	dir string

	spend      map[string]interface{}
	delegation map[string]interface{}
}

// NewStore loads both policy documents from dir, seeding missing files
// with the compiled defaults.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create policy dir: %w", err)
	}
	s := &Store{dir: dir}

	spend, err := s.loadOrSeed(spendPolicyFile, func() map[string]interface{} {
		return CompileSpendPolicy(defaultPolicyText)
	})
	if err != nil {
		return nil, err
	}
	delegation, err := s.loadOrSeed(delegationRulesFile, func() map[string]interface{} {
		return CompileDelegationRules(defaultPolicyText)
	})
	if err != nil {
		return nil, err
	}

	s.spend = spend
	s.delegation = delegation
	return s, nil
}

func (s *Store) loadOrSeed(name string, seed func() map[string]interface{}) (map[string]interface{}, error) {
	doc, err := s.readFile(name)
	if err == nil {
		return doc, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	doc = seed()
	if err := s.writeFile(name, doc); err != nil {
		return nil, fmt.Errorf("seed %s: %w", name, err)
	}
	return doc, nil
}

func (s *Store) readFile(name string) (map[string]interface{}, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, err
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) writeFile(name string, doc map[string]interface{}) error {
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(s.dir, name), raw, 0o644)
}

// SpendPolicy returns the active spend policy snapshot.
func (s *Store) SpendPolicy() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spend
}

// DelegationRules returns the active delegation rules snapshot.
func (s *Store) DelegationRules() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.delegation
}

// SetSpendPolicy persists and activates a new spend policy.
func (s *Store) SetSpendPolicy(doc map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeFile(spendPolicyFile, doc); err != nil {
		return fmt.Errorf("save spend policy: %w", err)
	}
	s.spend = doc
	return nil
}

// SetDelegationRules persists and activates new delegation rules.
func (s *Store) SetDelegationRules(doc map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeFile(delegationRulesFile, doc); err != nil {
		return fmt.Errorf("save delegation rules: %w", err)
	}
	s.delegation = doc
	return nil
}

// ReloadSpendPolicy re-reads the spend policy file from disk.
func (s *Store) ReloadSpendPolicy() error {
	doc, err := s.readFile(spendPolicyFile)
	if err != nil {
		return fmt.Errorf("reload spend policy: %w", err)
	}
	s.mu.Lock()
	s.spend = doc
	s.mu.Unlock()
	return nil
}

// ReloadDelegationRules re-reads the delegation rules file from disk.
func (s *Store) ReloadDelegationRules() error {
	doc, err := s.readFile(delegationRulesFile)
	if err != nil {
		return fmt.Errorf("reload delegation rules: %w", err)
	}
	s.mu.Lock()
	s.delegation = doc
	s.mu.Unlock()
	return nil
}
