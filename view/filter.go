package view

import (
	"reflect"
	"sync"
)

// FilterState is the source of the parameters a View requests with.
type FilterState interface {
	// Subscribe registers a listener called after every change.
	Subscribe(listener func()) (unsubscribe func())
	Parameters() map[string]any
}

// Filter is a mutable set of attributes usable as FilterState.
type Filter struct {
	mutex      *sync.RWMutex
	attributes map[string]any
	listeners  map[int]func()
	nextID     int
}

func NewFilter(attributes map[string]any) *Filter {
	f := &Filter{
		mutex:      &sync.RWMutex{},
		attributes: map[string]any{},
		listeners:  map[int]func(){},
	}
	for k, v := range attributes {
		f.attributes[k] = v
	}
	return f
}

func (f *Filter) Get(key string) any {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	return f.attributes[key]
}

func (f *Filter) Attributes() map[string]any {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	result := make(map[string]any, len(f.attributes))
	for k, v := range f.attributes {
		result[k] = v
	}
	return result
}

func (f *Filter) Set(key string, value any) {
	f.SetAll(map[string]any{key: value})
}

// SetAll applies every attribute and notifies listeners once if anything
// changed.
func (f *Filter) SetAll(attributes map[string]any) {
	f.mutex.Lock()
	changed := false
	for k, v := range attributes {
		previous, exists := f.attributes[k]
		if exists && reflect.DeepEqual(previous, v) {
			continue
		}
		f.attributes[k] = v
		changed = true
	}
	f.mutex.Unlock()

	if changed {
		f.notify()
	}
}

func (f *Filter) Unset(key string) {
	f.mutex.Lock()
	_, exists := f.attributes[key]
	delete(f.attributes, key)
	f.mutex.Unlock()

	if exists {
		f.notify()
	}
}

// Parameters returns the attributes worth sending: nil values, empty strings
// and empty lists are left out.
func (f *Filter) Parameters() map[string]any {
	f.mutex.RLock()
	defer f.mutex.RUnlock()

	params := map[string]any{}
	for k, v := range f.attributes {
		switch value := v.(type) {
		case nil:
			continue
		case string:
			if value == "" {
				continue
			}
		case []any:
			if len(value) == 0 {
				continue
			}
		}
		params[k] = v
	}
	return params
}

func (f *Filter) Subscribe(listener func()) (unsubscribe func()) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	id := f.nextID
	f.nextID++
	f.listeners[id] = listener

	return func() {
		f.mutex.Lock()
		defer f.mutex.Unlock()
		delete(f.listeners, id)
	}
}

func (f *Filter) notify() {
	f.mutex.RLock()
	listeners := make([]func(), 0, len(f.listeners))
	for _, listener := range f.listeners {
		listeners = append(listeners, listener)
	}
	f.mutex.RUnlock()

	for _, listener := range listeners {
		listener()
	}
}
