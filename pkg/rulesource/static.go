package rulesource

import (
	"context"
	"sync"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/audit"
)

// Static is an in-memory rule source. Replace swaps the whole list, mirroring
// how a database-backed source returns a fresh result set per pull.
type Static struct {
	mu    sync.RWMutex
	rules []audit.Rule
}

// NewStatic creates a Static source serving the given rules.
func NewStatic(rules ...audit.Rule) *Static {
	s := &Static{}
	s.Replace(rules...)
	return s
}

// ListEnabledRules returns a copy of the enabled rules in insertion order.
func (s *Static) ListEnabledRules(_ context.Context) ([]audit.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]audit.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

// Replace substitutes the full rule list.
func (s *Static) Replace(rules ...audit.Rule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append([]audit.Rule(nil), rules...)
}

var _ audit.RuleSource = (*Static)(nil)
