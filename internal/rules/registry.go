package rules

import (
	"fmt"
	"strings"
	"sync"
)

var (
	registry = make(map[string]Rule)
	// order preserves registration order; the audit report lists results in
	// this order, so it must be stable across runs.
	order []string
	mu    sync.RWMutex
)

func Register(r Rule) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[r.ID()]; exists {
		panic(fmt.Sprintf("rule %s already registered", r.ID()))
	}
	// Wrap the rule with AllowListWrapper to provide automatic allowlist support
	registry[r.ID()] = &AllowListWrapper{Rule: r}
	order = append(order, r.ID())
}

// List returns all registered rules in registration order.
func List() []Rule {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Rule, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}

// Resolve selects rules by a comma-separated ID list. An empty selector
// returns every registered rule in registration order.
func Resolve(selector string) ([]Rule, error) {
	mu.RLock()
	defer mu.RUnlock()

	if selector == "" {
		out := make([]Rule, 0, len(order))
		for _, id := range order {
			out = append(out, registry[id])
		}
		return out, nil
	}

	ids := strings.Split(selector, ",")
	var selected []Rule
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if r, ok := registry[id]; ok {
			selected = append(selected, r)
		} else {
			return nil, fmt.Errorf("rule not found: %s", id)
		}
	}
	return selected, nil
}
