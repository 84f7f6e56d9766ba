// Package view keeps a page-by-page copy of the result of a filter, backed by
// a database.
package view

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"

	"github.com/fulldump/gapdb/database"
	"github.com/fulldump/gapdb/record"
)

// Requester is the part of a database a View needs.
type Requester interface {
	Request(ctx context.Context, q database.Query, offset, length int) (*database.Result, error)
}

// EndPolicy decides when a page marks the end of the result set.
type EndPolicy int

const (
	// EndOnEmptyPage only takes an empty page as the end.
	EndOnEmptyPage EndPolicy = iota
	// EndOnShortPage takes any page shorter than requested as the end.
	EndOnShortPage
)

const DefaultPageLength = 10

// ErrRestartPending is returned by NextPage while the contents belong to a
// filter older than the current one, either because the latest restart is
// still running or because it failed. Restart to recover.
var ErrRestartPending = errors.New("view restart pending")

type Config struct {
	PageLength int

	// PageLengthFunc, when set, is asked for the length of every request.
	PageLengthFunc func() int

	EndPolicy EndPolicy

	// OnError receives the errors of restarts triggered by filter changes.
	OnError func(err error)

	Logger *log.Logger
}

type View struct {
	db     Requester
	filter FilterState
	config Config

	mutex     *sync.Mutex
	records   []record.Record
	keys      map[string]bool
	issued    uint64 // sequence of the latest restart
	applied   uint64 // sequence of the restart the contents come from
	exhausted bool

	restarts    *sync.WaitGroup
	unsubscribe func()
}

// New binds a view to db and filter. Every change of filter restarts the
// view in background, call Restart to load the first page.
func New(db Requester, filter FilterState, c *Config) *View {

	v := &View{
		db:       db,
		filter:   filter,
		mutex:    &sync.Mutex{},
		records:  []record.Record{},
		keys:     map[string]bool{},
		restarts: &sync.WaitGroup{},
	}
	if c != nil {
		v.config = *c
	}
	if v.config.PageLength <= 0 {
		v.config.PageLength = DefaultPageLength
	}
	if v.config.Logger == nil {
		v.config.Logger = log.New(io.Discard, "", 0)
	}
	if v.config.OnError == nil {
		logger := v.config.Logger
		v.config.OnError = func(err error) {
			logger.Println("ERROR: restart view:", err.Error())
		}
	}

	v.unsubscribe = filter.Subscribe(v.restartInBackground)

	return v
}

func (v *View) pageLength() int {
	if v.config.PageLengthFunc != nil {
		if n := v.config.PageLengthFunc(); n > 0 {
			return n
		}
	}
	return v.config.PageLength
}

// restartInBackground takes the sequence number and the parameters at
// notification time, so restarts are ordered as the changes were.
func (v *View) restartInBackground() {
	seq, params := v.begin()
	v.restarts.Add(1)
	go func() {
		defer v.restarts.Done()
		err := v.restart(context.Background(), seq, params)
		if err != nil {
			v.config.OnError(err)
		}
	}()
}

func (v *View) begin() (uint64, map[string]any) {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	v.issued++
	return v.issued, v.filter.Parameters()
}

// Restart replaces the contents with the first page of the current filter.
// When several restarts overlap only the latest one is applied, whatever the
// order they resolve in.
func (v *View) Restart(ctx context.Context) error {
	seq, params := v.begin()
	return v.restart(ctx, seq, params)
}

func (v *View) restart(ctx context.Context, seq uint64, params map[string]any) error {

	length := v.pageLength()
	result, err := v.db.Request(ctx, database.ByParams(params), 0, length)
	if err != nil {
		return err
	}
	page := result.All()

	v.mutex.Lock()
	defer v.mutex.Unlock()

	if seq != v.issued {
		v.config.Logger.Printf("view: drop restart %d, %d is newer\n", seq, v.issued)
		return nil
	}

	v.records = []record.Record{}
	v.keys = map[string]bool{}
	v.append(page)
	v.applied = seq
	v.exhausted = v.isEnd(len(page), length)

	return nil
}

// NextPage appends the following page. It does nothing once the end of the
// result set was reached, and the page is dropped if a restart happens while
// it is being fetched.
func (v *View) NextPage(ctx context.Context) error {

	v.mutex.Lock()
	if v.applied != v.issued {
		v.mutex.Unlock()
		return ErrRestartPending
	}
	if v.exhausted {
		v.mutex.Unlock()
		return nil
	}
	seq := v.applied
	offset := len(v.records)
	v.mutex.Unlock()

	length := v.pageLength()
	result, err := v.db.Request(ctx, database.ByParams(v.filter.Parameters()), offset, length)
	if err != nil {
		return err
	}
	page := result.All()

	v.mutex.Lock()
	defer v.mutex.Unlock()

	if seq != v.applied || seq != v.issued {
		v.config.Logger.Printf("view: drop page at %d, contents restarted\n", offset)
		return nil
	}

	v.append(page)
	if v.isEnd(len(page), length) {
		v.exhausted = true
	}

	return nil
}

func (v *View) append(page []record.Record) {
	for _, r := range page {
		key, ok := r.Key()
		if !ok || v.keys[key] {
			continue
		}
		v.keys[key] = true
		v.records = append(v.records, r)
	}
}

func (v *View) isEnd(received, requested int) bool {
	if received == 0 {
		return true
	}
	return v.config.EndPolicy == EndOnShortPage && received < requested
}

func (v *View) Records() []record.Record {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	result := make([]record.Record, len(v.records))
	copy(result, v.records)
	return result
}

func (v *View) Len() int {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return len(v.records)
}

func (v *View) Exhausted() bool {
	v.mutex.Lock()
	defer v.mutex.Unlock()

	return v.exhausted
}

// Wait blocks until the restarts triggered by filter changes are done.
func (v *View) Wait() {
	v.restarts.Wait()
}

// Close stops listening to the filter.
func (v *View) Close() {
	v.unsubscribe()
	v.Wait()
}
