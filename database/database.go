// Package database is a client side record cache that answers queries as if
// it held the whole remote result set, fetching only the missing records.
package database

import (
	"errors"
	"io"
	"log"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/fulldump/gapdb/predicate"
	"github.com/fulldump/gapdb/record"
	"github.com/fulldump/gapdb/remote"
	"github.com/fulldump/gapdb/store"
)

const DefaultPageLength = 10

var (
	ErrMalformedQuery = errors.New("malformed query")
	ErrInvalidWindow  = errors.New("invalid window")
	ErrFetch          = errors.New("remote fetch failed")
)

type Config struct {
	// PageLength is the window length used when a request does not set one.
	PageLength int

	// UniqueAttr lists attributes that identify at most one record, "id" is
	// always included.
	UniqueAttr []string

	AttrFilters map[string]predicate.Filter

	Remote remote.Fetcher
	Parser remote.Parser

	// Merge combines a held record with a fetched one of the same id,
	// store.MergeAttributes by default.
	Merge store.MergeFunc

	// Options are passed through to the fetcher in every request.
	Options any

	Logger *log.Logger
}

type Database struct {
	pageLength int
	unique     map[string]bool
	options    any

	store     *store.Store
	evaluator *predicate.Evaluator
	remote    remote.Fetcher
	parse     remote.Parser
	flight    *singleflight.Group
	inFlight  atomic.Int64
	callers   atomic.Int64 // callers waiting on a fetch, shared or not
	logger    *log.Logger
}

// New builds a database holding the initial records.
func New(c *Config, initial ...record.Record) (*Database, error) {

	if c.Remote == nil {
		return nil, errors.New("config: remote fetcher is mandatory")
	}

	s, err := store.New()
	if err != nil {
		return nil, err
	}
	_, _, err = s.WithMerge(c.Merge).Put(initial...)
	if err != nil {
		return nil, err
	}

	d := &Database{
		pageLength: c.PageLength,
		unique:     map[string]bool{record.IDAttr: true},
		options:    c.Options,
		store:      s,
		evaluator:  predicate.NewEvaluator(c.AttrFilters),
		remote:     c.Remote,
		parse:      c.Parser,
		flight:     &singleflight.Group{},
		logger:     c.Logger,
	}

	if d.pageLength <= 0 {
		d.pageLength = DefaultPageLength
	}
	for _, attr := range c.UniqueAttr {
		d.unique[attr] = true
	}
	if d.parse == nil {
		d.parse = remote.ParseRecords
	}
	if d.logger == nil {
		d.logger = log.New(io.Discard, "", 0)
	}

	return d, nil
}

func (d *Database) PageLength() int {
	return d.pageLength
}

func (d *Database) Store() *store.Store {
	return d.store
}

// AttrFilter registers the filter used to compare one attribute.
func (d *Database) AttrFilter(name string, f predicate.Filter) *Database {
	d.evaluator.Register(name, f)
	return d
}

func (d *Database) AttrFilters(filters map[string]predicate.Filter) *Database {
	d.evaluator.RegisterAll(filters)
	return d
}

// InFlight returns how many distinct remote fetches are running.
func (d *Database) InFlight() int {
	return int(d.inFlight.Load())
}

func (d *Database) isUnique(params map[string]any) bool {
	for key := range params {
		if d.unique[key] {
			return true
		}
	}
	return false
}
