// Package store keeps records unique by id and sorted by numeric id.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/btree"

	"github.com/fulldump/gapdb/record"
)

var ErrMissingID = errors.New("record has no id")

type item struct {
	key     string
	num     float64
	numeric bool
	rec     record.Record
}

// less orders numeric ids first by value, then the rest by key. Ties are
// broken by key so two distinct ids never compare equal.
func less(a, b *item) bool {
	if a.numeric != b.numeric {
		return a.numeric
	}
	if a.numeric && a.num != b.num {
		return a.num < b.num
	}
	return a.key < b.key
}

// MergeFunc builds the record kept when incoming has the id of held.
type MergeFunc func(held, incoming record.Record) record.Record

// MergeAttributes keeps the held attributes incoming lacks, incoming wins on
// the rest.
func MergeAttributes(held, incoming record.Record) record.Record {
	return held.Merge(incoming)
}

// ReplaceRecord keeps incoming as is.
func ReplaceRecord(_, incoming record.Record) record.Record {
	return incoming
}

type Store struct {
	mutex *sync.RWMutex
	tree  *btree.BTreeG[*item]
	byKey map[string]*item
	merge MergeFunc
}

func New(records ...record.Record) (*Store, error) {
	s := &Store{
		mutex: &sync.RWMutex{},
		tree:  btree.NewG(32, less),
		byKey: map[string]*item{},
		merge: MergeAttributes,
	}

	_, _, err := s.Put(records...)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func newItem(r record.Record) (*item, error) {
	key, ok := r.Key()
	if !ok {
		return nil, ErrMissingID
	}
	num, numeric := record.NumericID(r.ID())
	return &item{
		key:     key,
		num:     num,
		numeric: numeric,
		rec:     r,
	}, nil
}

// WithMerge sets how Put combines a record with the held one of the same id.
// A nil f restores MergeAttributes.
func (s *Store) WithMerge(f MergeFunc) *Store {
	if f == nil {
		f = MergeAttributes
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.merge = f
	return s
}

// Put inserts the records. When the id is already held the stored record is
// combined with the new one by the merge function, MergeAttributes unless
// WithMerge says otherwise. It writes nothing if any record lacks an id.
func (s *Store) Put(records ...record.Record) (added, updated int, err error) {

	items := make([]*item, 0, len(records))
	for i, r := range records {
		it, err := newItem(r)
		if err != nil {
			return 0, 0, fmt.Errorf("record %d: %w", i, err)
		}
		items = append(items, it)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, it := range items {
		previous, exists := s.byKey[it.key]
		if exists {
			// the sort position follows the latest id representation
			s.tree.Delete(previous)
			it.rec = s.merge(previous.rec, it.rec)
			updated++
		} else {
			added++
		}
		s.byKey[it.key] = it
		s.tree.ReplaceOrInsert(it)
	}

	return
}

func (s *Store) Get(id any) (record.Record, bool) {
	key, ok := record.Key(id)
	if !ok {
		return nil, false
	}

	s.mutex.RLock()
	defer s.mutex.RUnlock()

	it, exists := s.byKey[key]
	if !exists {
		return nil, false
	}
	return it.rec, true
}

func (s *Store) Has(id any) bool {
	_, exists := s.Get(id)
	return exists
}

func (s *Store) Remove(id any) bool {
	key, ok := record.Key(id)
	if !ok {
		return false
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	it, exists := s.byKey[key]
	if !exists {
		return false
	}
	s.tree.Delete(it)
	delete(s.byKey, key)
	return true
}

// Reset replaces the whole content of the store.
func (s *Store) Reset(records ...record.Record) error {
	fresh, err := New(records...)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.tree = fresh.tree
	s.byKey = fresh.byKey
	return nil
}

func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.tree.Len()
}

// Traverse visits records in id order until f returns false. The store is
// read locked during the traversal, f must not write into it.
func (s *Store) Traverse(f func(r record.Record) bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	s.tree.Ascend(func(it *item) bool {
		return f(it.rec)
	})
}

func (s *Store) Records() []record.Record {
	result := make([]record.Record, 0, s.Len())
	s.Traverse(func(r record.Record) bool {
		result = append(result, r)
		return true
	})
	return result
}
