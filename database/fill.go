package database

import (
	"context"
	"fmt"

	"github.com/fulldump/gapdb/record"
	"github.com/fulldump/gapdb/remote"
	"github.com/fulldump/gapdb/utils"
)

// Fill answers params within the window, asking the remote side only for the
// records not held yet. Identical concurrent fills share one remote fetch.
func (d *Database) Fill(ctx context.Context, params map[string]any, w Window) (*Result, error) {

	err := w.validate()
	if err != nil {
		return nil, err
	}

	loaded := d.Query(params, &w)
	if len(loaded) == 1 && d.isUnique(params) {
		return single(loaded[0]), nil
	}

	req := &remote.Request{
		Params:     record.Record(params).Clone(),
		LoadedIDs:  ids(d.Query(params, nil)),
		Initial:    w.Offset,
		PageLength: w.Length,
		Options:    d.options,
	}

	key, err := req.Key()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedQuery, err)
	}

	shared, err := d.share(ctx, key, req)
	if err != nil {
		return nil, err
	}
	if shared {
		d.logger.Println("fill: joined in-flight fetch", key)
	}

	results := d.Query(params, &w)
	if w.Length == 1 {
		if len(results) == 0 {
			return single(nil), nil
		}
		return single(results[0]), nil
	}

	return &Result{Records: results}, nil
}

// share runs one fetch per key among concurrent callers. The fetch is
// detached from ctx: a caller that gives up gets ctx.Err() but the merge
// still happens.
func (d *Database) share(ctx context.Context, key string, req *remote.Request) (shared bool, err error) {

	detached := context.WithoutCancel(ctx)
	ch := d.flight.DoChan(key, func() (_ any, err error) {
		d.inFlight.Add(1)
		defer d.inFlight.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: panic: %v", ErrFetch, r)
			}
		}()
		return nil, d.fetch(detached, req)
	})

	d.callers.Add(1)
	defer d.callers.Add(-1)

	select {
	case result := <-ch:
		return result.Shared, result.Err
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// fetch asks the remote side and merges the answer into the store. Nothing
// is merged unless the whole answer parses.
func (d *Database) fetch(ctx context.Context, req *remote.Request) error {

	raws, err := d.remote.Fetch(ctx, req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}

	records := []record.Record{}
	for i, raw := range raws {
		parsed, err := d.parse(raw)
		if err != nil {
			return fmt.Errorf("%w: parse item %d: %w", ErrFetch, i, err)
		}
		records = append(records, parsed...)
	}

	added, updated, err := d.store.Put(records...)
	if err != nil {
		return fmt.Errorf("%w: merge: %w", ErrFetch, err)
	}

	d.logger.Printf("fetch: params=%v initial=%d pageLength=%d loaded=%d received=%d added=%d updated=%d\n",
		utils.SortedKeys(req.Params), req.Initial, req.PageLength, len(req.LoadedIDs), len(records), added, updated)

	return nil
}
