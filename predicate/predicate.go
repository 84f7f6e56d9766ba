// Package predicate decides whether a record matches a set of required
// attribute values.
package predicate

import (
	"strings"
	"sync"

	"github.com/SierraSoftworks/connor"

	"github.com/fulldump/gapdb/record"
)

// Filter compares the stored value of an attribute with the required one.
// It is called even when the record lacks the attribute (stored is nil).
type Filter func(stored, required any, rec record.Record) bool

type Evaluator struct {
	mutex   *sync.RWMutex
	filters map[string]Filter
}

func NewEvaluator(filters map[string]Filter) *Evaluator {
	e := &Evaluator{
		mutex:   &sync.RWMutex{},
		filters: map[string]Filter{},
	}
	return e.RegisterAll(filters)
}

// Register sets the filter for an attribute, replacing any previous one.
// A nil filter restores the default comparison.
func (e *Evaluator) Register(name string, f Filter) *Evaluator {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if f == nil {
		delete(e.filters, name)
		return e
	}
	e.filters[name] = f
	return e
}

func (e *Evaluator) RegisterAll(filters map[string]Filter) *Evaluator {
	for name, f := range filters {
		e.Register(name, f)
	}
	return e
}

func (e *Evaluator) Filter(name string) (Filter, bool) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	f, exists := e.filters[name]
	return f, exists
}

// Evaluate reports whether rec satisfies every key of params. Empty params
// match everything.
func (e *Evaluator) Evaluate(rec record.Record, params map[string]any) bool {
	for key, required := range params {
		stored := rec[key]
		if f, exists := e.Filter(key); exists {
			if !f(stored, required, rec) {
				return false
			}
			continue
		}
		if !Match(key, stored, required, rec) {
			return false
		}
	}

	return true
}

// Match is the comparison used for attributes without a registered filter.
func Match(key string, stored, required any, rec record.Record) bool {

	if operators, ok := operatorDocument(required); ok {
		match, err := connor.Match(map[string]interface{}{key: operators}, map[string]interface{}(rec))
		if err != nil {
			return false
		}
		return match
	}

	if values, ok := required.([]any); ok {
		if _, storedIsList := stored.([]any); !storedIsList {
			for _, value := range values {
				if record.Loose(stored, value) {
					return true
				}
			}
			return false
		}
	}

	return record.Loose(stored, required)
}

func operatorDocument(v any) (map[string]interface{}, bool) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}
