package database

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fulldump/biff"

	"github.com/fulldump/gapdb/record"
	"github.com/fulldump/gapdb/remote"
	"github.com/fulldump/gapdb/service"
	"github.com/fulldump/gapdb/store"
)

type JSON = map[string]any

// newRemote serves records the way a real remote side does and keeps every
// request it receives.
func newRemote(records ...record.Record) (*service.Service, remote.FetcherFunc, *[]*remote.Request, *int64) {

	s := service.NewService(&service.Config{})
	_, err := s.Insert(records...)
	if err != nil {
		panic(err)
	}

	mutex := &sync.Mutex{}
	requests := []*remote.Request{}
	calls := int64(0)

	f := func(ctx context.Context, req *remote.Request) ([]json.RawMessage, error) {
		atomic.AddInt64(&calls, 1)
		mutex.Lock()
		requests = append(requests, req)
		mutex.Unlock()
		return remote.Encode(s.Page(req)...)
	}

	return s, f, &requests, &calls
}

func books() []record.Record {
	return []record.Record{
		{"id": 1, "genre": "scifi", "title": "Dune", "isbn": "A-1"},
		{"id": 2, "genre": "scifi", "title": "Solaris", "isbn": "A-2"},
		{"id": 3, "genre": "fantasy", "title": "Earthsea", "isbn": "A-3"},
		{"id": 4, "genre": "fantasy", "title": "Gormenghast", "isbn": "A-4"},
	}
}

func wire(req *remote.Request) string {
	b, _ := json.Marshal(req)
	return string(b)
}

func eventually(condition func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func keys(records []record.Record) []string {
	result := []string{}
	for _, r := range records {
		key, _ := r.Key()
		result = append(result, key)
	}
	return result
}

func TestDatabase_Fill(t *testing.T) {

	_, fetcher, requests, calls := newRemote(books()...)

	d, err := New(&Config{Remote: fetcher})
	biff.AssertNil(err)

	result, err := d.Request(context.Background(), ByParams{"genre": "scifi"}, 0, 2)
	biff.AssertNil(err)

	biff.AssertEqual(*calls, int64(1))
	biff.AssertEqual(wire((*requests)[0]), `{"genre":"scifi","initial":0,"loadedIds":[],"pageLength":2}`)
	biff.AssertFalse(result.Single)
	biff.AssertEqual(keys(result.Records), []string{"1", "2"})
	biff.AssertEqual(keys(d.Store().Records()), []string{"1", "2"})

	params := ByParams{"genre": "fantasy"}
	_, err = d.Request(context.Background(), params, 0, 2)
	biff.AssertNil(err)
	params["genre"] = "horror"
	biff.AssertEqual((*requests)[1].Params["genre"], "fantasy")
}

func TestDatabase_Fill_LoadedIds(t *testing.T) {

	_, fetcher, requests, _ := newRemote(books()...)

	d, _ := New(&Config{Remote: fetcher}, record.Record{"id": 2, "genre": "scifi", "title": "Solaris"})

	result, err := d.Request(context.Background(), ByParams{"genre": "scifi"}, 0, 2)
	biff.AssertNil(err)

	biff.AssertEqual(wire((*requests)[0]), `{"genre":"scifi","initial":0,"loadedIds":[2],"pageLength":2}`)
	biff.AssertEqual(keys(result.Records), []string{"1", "2"})
}

func TestDatabase_Fill_Window(t *testing.T) {

	all := []record.Record{}
	for i := 1; i <= 10; i++ {
		all = append(all, record.Record{"id": i, "kind": "x"})
	}
	_, fetcher, _, calls := newRemote(all...)

	d, _ := New(&Config{Remote: fetcher})
	ctx := context.Background()

	page, err := d.Request(ctx, ByParams{"kind": "x"}, 3, 4)
	biff.AssertNil(err)
	biff.AssertEqual(keys(page.Records), []string{"4", "5", "6", "7"})

	full, err := d.Request(ctx, ByParams{"kind": "x"}, 0, 10)
	biff.AssertNil(err)
	biff.AssertEqual(*calls, int64(2))
	biff.AssertEqual(keys(full.Records), []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"})

	again, err := d.Request(ctx, ByParams{"kind": "x"}, 3, 4)
	biff.AssertNil(err)
	biff.AssertEqual(keys(again.Records), keys(full.Records[3:7]))
}

func TestDatabase_Fill_Dedupe(t *testing.T) {

	s := service.NewService(&service.Config{})
	s.Insert(books()...)

	calls := int64(0)
	release := make(chan struct{})
	fetcher := remote.FetcherFunc(func(ctx context.Context, req *remote.Request) ([]json.RawMessage, error) {
		atomic.AddInt64(&calls, 1)
		<-release
		return remote.Encode(s.Page(req)...)
	})

	d, _ := New(&Config{Remote: fetcher})

	results := make([]*Result, 2)
	errs := make([]error, 2)
	wg := &sync.WaitGroup{}
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = d.Request(context.Background(), ByParams{"genre": "scifi"}, 0, 2)
		}()
	}

	biff.AssertTrue(eventually(func() bool {
		return d.callers.Load() == 2 && atomic.LoadInt64(&calls) == 1
	}))
	biff.AssertEqual(d.InFlight(), 1)
	close(release)
	wg.Wait()

	biff.AssertEqual(atomic.LoadInt64(&calls), int64(1))
	for i := range results {
		biff.AssertNil(errs[i])
		biff.AssertEqual(keys(results[i].Records), []string{"1", "2"})
	}
	biff.AssertEqual(d.InFlight(), 0)
}

func TestDatabase_Fill_CallerGivesUp(t *testing.T) {

	s := service.NewService(&service.Config{})
	s.Insert(books()...)

	release := make(chan struct{})
	fetcher := remote.FetcherFunc(func(ctx context.Context, req *remote.Request) ([]json.RawMessage, error) {
		<-release
		return remote.Encode(s.Page(req)...)
	})

	d, _ := New(&Config{Remote: fetcher})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		_, err := d.Request(ctx, ByParams{"genre": "scifi"}, 0, 2)
		done <- err
	}()

	biff.AssertTrue(eventually(func() bool {
		return d.InFlight() == 1
	}))
	cancel()
	biff.AssertTrue(errors.Is(<-done, context.Canceled))

	close(release)
	biff.AssertTrue(eventually(func() bool {
		return d.InFlight() == 0 && d.Store().Len() == 2
	}))
}

func TestDatabase_Fill_Unique(t *testing.T) {

	_, fetcher, _, calls := newRemote(books()...)

	d, _ := New(&Config{
		Remote:     fetcher,
		UniqueAttr: []string{"isbn"},
	}, record.Record{"id": 3, "genre": "fantasy", "isbn": "A-3"})

	result, err := d.Request(context.Background(), ByParams{"isbn": "A-3"}, 0, 0)
	biff.AssertNil(err)
	biff.AssertEqual(*calls, int64(0))
	biff.AssertTrue(result.Single)
	biff.AssertEqual(result.One().ID(), 3)

	result, err = d.Request(context.Background(), ByParams{"genre": "fantasy"}, 0, 0)
	biff.AssertNil(err)
	biff.AssertEqual(*calls, int64(1))
	biff.AssertEqual(keys(result.Records), []string{"3", "4"})
}

func TestDatabase_Fill_Errors(t *testing.T) {

	biff.Alternative("Fill errors", func(a *biff.A) {

		calls := int64(0)
		fetcher := remote.FetcherFunc(func(ctx context.Context, req *remote.Request) ([]json.RawMessage, error) {
			atomic.AddInt64(&calls, 1)
			if req.Params["genre"] == "broken" {
				return []json.RawMessage{json.RawMessage(`[{"id":1},{"genre":"no id"}]`)}, nil
			}
			if req.Params["genre"] == "panic" {
				panic("remote exploded")
			}
			if req.Params["genre"] == "garbage" {
				return []json.RawMessage{json.RawMessage(`"garbage"`)}, nil
			}
			return nil, errors.New("connection refused")
		})
		d, _ := New(&Config{Remote: fetcher})
		ctx := context.Background()

		a.Alternative("Remote failure", func(a *biff.A) {
			_, err := d.Request(ctx, ByParams{"genre": "scifi"}, 0, 2)
			biff.AssertTrue(errors.Is(err, ErrFetch))
			biff.AssertTrue(strings.Contains(err.Error(), "connection refused"))
			biff.AssertEqual(d.InFlight(), 0)
		})

		a.Alternative("Record without id merges nothing", func(a *biff.A) {
			_, err := d.Request(ctx, ByParams{"genre": "broken"}, 0, 2)
			biff.AssertTrue(errors.Is(err, ErrFetch))
			biff.AssertEqual(d.Store().Len(), 0)
		})

		a.Alternative("Unparseable payload", func(a *biff.A) {
			_, err := d.Request(ctx, ByParams{"genre": "garbage"}, 0, 2)
			biff.AssertTrue(errors.Is(err, ErrFetch))
		})

		a.Alternative("Invalid window", func(a *biff.A) {
			_, err := d.Request(ctx, ByParams{"genre": "scifi"}, -1, 2)
			biff.AssertTrue(errors.Is(err, ErrInvalidWindow))

			_, err = d.Fill(ctx, map[string]any{"genre": "scifi"}, Window{Offset: 0, Length: 0})
			biff.AssertTrue(errors.Is(err, ErrInvalidWindow))
			biff.AssertEqual(atomic.LoadInt64(&calls), int64(0))
		})

		a.Alternative("Invalid UTF-8 param", func(a *biff.A) {
			_, err := d.Request(ctx, ByParams{"title": "Dune\xff"}, 0, 2)
			biff.AssertTrue(errors.Is(err, ErrMalformedQuery))
			biff.AssertEqual(atomic.LoadInt64(&calls), int64(0))
		})

		a.Alternative("Panicking fetcher", func(a *biff.A) {
			_, err := d.Request(ctx, ByParams{"genre": "panic"}, 0, 2)
			biff.AssertTrue(errors.Is(err, ErrFetch))
			biff.AssertEqual(d.InFlight(), 0)
		})

		a.Alternative("Empty id", func(a *biff.A) {
			_, err := d.Request(ctx, ByID{}, 0, 0)
			biff.AssertTrue(errors.Is(err, ErrMalformedQuery))
			biff.AssertEqual(atomic.LoadInt64(&calls), int64(0))
		})
	})
}

func TestDatabase_ByID(t *testing.T) {

	biff.Alternative("Request by id", func(a *biff.A) {

		_, fetcher, requests, calls := newRemote(books()...)
		d, _ := New(&Config{Remote: fetcher}, record.Record{"id": 5, "title": "Hyperion"})
		ctx := context.Background()

		a.Alternative("Held", func(a *biff.A) {
			result, err := d.Request(ctx, ByID{ID: "5"}, 0, 0)
			biff.AssertNil(err)
			biff.AssertEqual(*calls, int64(0))
			biff.AssertTrue(result.Single)
			biff.AssertEqual(result.One().Get("title"), "Hyperion")
		})

		a.Alternative("Missing", func(a *biff.A) {
			result, err := d.Request(ctx, ByID{ID: 1}, 0, 0)
			biff.AssertNil(err)
			biff.AssertEqual(*calls, int64(1))
			biff.AssertEqual(wire((*requests)[0]), `{"id":1,"initial":0,"loadedIds":[],"pageLength":1}`)
			biff.AssertTrue(result.Single)
			biff.AssertEqual(result.One().Get("title"), "Dune")
		})

		a.Alternative("Unknown", func(a *biff.A) {
			result, err := d.Request(ctx, ByID{ID: 99}, 0, 0)
			biff.AssertNil(err)
			biff.AssertTrue(result.Single)
			biff.AssertNil(result.One())
			biff.AssertEqual(result.Len(), 0)
		})
	})
}

func TestDatabase_Batch(t *testing.T) {

	s := service.NewService(&service.Config{})
	s.Insert(books()...)

	fantasyDone := make(chan struct{})
	fetcher := remote.FetcherFunc(func(ctx context.Context, req *remote.Request) ([]json.RawMessage, error) {
		switch req.Params["genre"] {
		case "scifi":
			<-fantasyDone
		case "fantasy":
			defer close(fantasyDone)
		case "horror":
			return nil, errors.New("horror is down")
		}
		return remote.Encode(s.Page(req)...)
	})

	biff.Alternative("Batch", func(a *biff.A) {

		d, _ := New(&Config{Remote: fetcher})
		ctx := context.Background()

		a.Alternative("Keeps query order", func(a *biff.A) {
			result, err := d.Request(ctx, Batch{
				ByParams{"genre": "scifi"},
				ByParams{"genre": "fantasy"},
				ByID{ID: 1},
			}, 0, 2)
			biff.AssertNil(err)
			biff.AssertEqual(len(result.Batch), 3)
			biff.AssertEqual(keys(result.Batch[0].Records), []string{"1", "2"})
			biff.AssertEqual(keys(result.Batch[1].Records), []string{"3", "4"})
			biff.AssertTrue(result.Batch[2].Single)
			biff.AssertEqual(keys(result.All()), []string{"1", "2", "3", "4", "1"})
		})

		a.Alternative("Fails fast", func(a *biff.A) {
			_, err := d.Request(ctx, Batch{
				ByID{ID: 4},
				ByParams{"genre": "horror"},
			}, 0, 2)
			biff.AssertTrue(errors.Is(err, ErrFetch))
			biff.AssertTrue(strings.HasPrefix(err.Error(), "batch query 1: "))
		})
	})
}

func TestDatabase_PluckPick(t *testing.T) {

	_, fetcher, _, _ := newRemote(books()...)
	d, _ := New(&Config{Remote: fetcher})
	ctx := context.Background()

	titles, err := d.Pluck(ctx, "title", ByParams{"genre": "fantasy"}, 0, 0)
	biff.AssertNil(err)
	biff.AssertEqual(titles, []any{"Earthsea", "Gormenghast"})

	picked, err := d.Pick(ctx, []string{"id", "isbn"}, ByParams{"genre": "scifi"}, 0, 0)
	biff.AssertNil(err)
	biff.AssertEqualJson(picked, []JSON{
		{"id": 1, "isbn": "A-1"},
		{"id": 2, "isbn": "A-2"},
	})
}

func TestDatabase_AttrFilter(t *testing.T) {

	_, fetcher, _, _ := newRemote()
	d, _ := New(&Config{Remote: fetcher},
		record.Record{"id": 1, "tags": []any{"space", "desert"}},
		record.Record{"id": 2, "tags": []any{"ocean"}},
	)

	d.AttrFilter("tags", func(stored, required any, _ record.Record) bool {
		list, _ := stored.([]any)
		for _, v := range list {
			if v == required {
				return true
			}
		}
		return false
	})

	biff.AssertEqual(keys(d.Query(map[string]any{"tags": "desert"}, nil)), []string{"1"})
	biff.AssertEqual(keys(d.Query(map[string]any{"tags": "ocean"}, nil)), []string{"2"})
}

func TestParseQuery(t *testing.T) {

	q, err := ParseQuery([]any{"7", JSON{"genre": "scifi"}, float64(3)})
	biff.AssertNil(err)
	biff.AssertEqual(q, Batch{ByID{ID: "7"}, ByParams{"genre": "scifi"}, ByID{ID: float64(3)}})

	_, err = ParseQuery(true)
	biff.AssertTrue(errors.Is(err, ErrMalformedQuery))

	_, err = ParseQuery([]any{"1", nil})
	biff.AssertTrue(errors.Is(err, ErrMalformedQuery))
	biff.AssertTrue(strings.HasPrefix(err.Error(), "batch item 1: "))
}

func TestDatabase_Merge(t *testing.T) {

	biff.Alternative("Merge", func(a *biff.A) {

		_, fetcher, _, _ := newRemote(record.Record{"id": 1, "title": "Dune"})
		held := record.Record{"id": 1, "title": "draft", "notes": "local"}
		ctx := context.Background()

		a.Alternative("Attributes by default", func(a *biff.A) {
			d, _ := New(&Config{Remote: fetcher}, held)

			result, err := d.Request(ctx, ByParams{"title": "Dune"}, 0, 0)
			biff.AssertNil(err)
			biff.AssertEqualJson(result.Records, []JSON{{"id": 1, "title": "Dune", "notes": "local"}})
		})

		a.Alternative("Replace", func(a *biff.A) {
			d, _ := New(&Config{Remote: fetcher, Merge: store.ReplaceRecord}, held)

			result, err := d.Request(ctx, ByParams{"title": "Dune"}, 0, 0)
			biff.AssertNil(err)
			biff.AssertEqualJson(result.Records, []JSON{{"id": 1, "title": "Dune"}})
		})
	})
}

func TestNew(t *testing.T) {

	_, err := New(&Config{})
	biff.AssertNotNil(err)

	_, fetcher, _, _ := newRemote()
	d, err := New(&Config{Remote: fetcher})
	biff.AssertNil(err)
	biff.AssertEqual(d.PageLength(), DefaultPageLength)

	_, err = New(&Config{Remote: fetcher}, record.Record{"title": "no id"})
	biff.AssertNotNil(err)
}
