package service

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fulldump/gapdb/predicate"
	"github.com/fulldump/gapdb/record"
	"github.com/fulldump/gapdb/remote"
	"github.com/fulldump/gapdb/store"
)

type Config struct {
	PageLength  int
	AttrFilters map[string]predicate.Filter
}

// Service is an in memory remote side that answers gap filling requests.
type Service struct {
	records    *store.Store
	evaluator  *predicate.Evaluator
	pageLength int
}

func NewService(c *Config) *Service {
	records, _ := store.New() // an empty store never fails

	s := &Service{
		records:    records,
		evaluator:  predicate.NewEvaluator(c.AttrFilters),
		pageLength: c.PageLength,
	}
	if s.pageLength <= 0 {
		s.pageLength = 10
	}

	return s
}

func (s *Service) DefaultPageLength() int {
	return s.pageLength
}

func (s *Service) Insert(records ...record.Record) (int, error) {
	added, _, err := s.records.Put(records...)
	return added, err
}

// Load inserts a stream of JSON documents, one record each.
func (s *Service) Load(r io.Reader) (int, error) {

	records := []record.Record{}
	decoder := json.NewDecoder(r)
	for {
		item := record.Record{}
		err := decoder.Decode(&item)
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("decode record %d: %w", len(records), err)
		}
		records = append(records, item)
	}

	return s.Insert(records...)
}

func (s *Service) Get(id any) (record.Record, error) {
	r, exists := s.records.Get(id)
	if !exists {
		return nil, ErrorRecordNotFound
	}
	return r, nil
}

func (s *Service) Len() int {
	return s.records.Len()
}

// Page returns the records matching the request params among the first
// initial+pageLength matches, leaving out the ones the client already holds.
// Sending the whole missing prefix lets the client window line up with the
// remote one once merged.
func (s *Service) Page(req *remote.Request) []record.Record {

	loaded := map[string]bool{}
	for _, id := range req.LoadedIDs {
		if key, ok := record.Key(id); ok {
			loaded[key] = true
		}
	}

	result := []record.Record{}
	remaining := req.Initial + req.PageLength
	if remaining <= 0 {
		return result
	}

	s.records.Traverse(func(r record.Record) bool {
		if !s.evaluator.Evaluate(r, req.Params) {
			return true
		}
		remaining--
		if key, _ := r.Key(); !loaded[key] {
			result = append(result, r)
		}
		return remaining > 0
	})

	return result
}
