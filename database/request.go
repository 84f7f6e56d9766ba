package database

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/fulldump/gapdb/record"
)

// Query selects records: ByID, ByParams or Batch.
type Query interface {
	isQuery()
}

// ByID looks up one record by identifier.
type ByID struct {
	ID any
}

// ByParams selects the records whose attributes match every param.
type ByParams map[string]any

// Batch runs every query and keeps each result apart, in order.
type Batch []Query

func (ByID) isQuery()     {}
func (ByParams) isQuery() {}
func (Batch) isQuery()    {}

// ParseQuery classifies a loosely typed value (typically decoded JSON): a
// list is a batch, an object is a params query and a string or number is an
// identifier.
func ParseQuery(v any) (Query, error) {
	switch value := v.(type) {
	case Query:
		return value, nil
	case []any:
		batch := make(Batch, 0, len(value))
		for i, item := range value {
			q, err := ParseQuery(item)
			if err != nil {
				return nil, fmt.Errorf("batch item %d: %w", i, err)
			}
			batch = append(batch, q)
		}
		return batch, nil
	case map[string]any:
		return ByParams(value), nil
	case record.Record:
		return ByParams(value), nil
	case string, json.Number,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return ByID{ID: value}, nil
	}

	return nil, fmt.Errorf("%w: unsupported type %T", ErrMalformedQuery, v)
}

// Request resolves q within [offset, offset+length). A length of zero or
// less means the configured page length. Identifier lookups ignore the
// window and resolve to a single record.
func (d *Database) Request(ctx context.Context, q Query, offset, length int) (*Result, error) {

	if length <= 0 {
		length = d.pageLength
	}
	w := Window{Offset: offset, Length: length}
	err := w.validate()
	if err != nil {
		return nil, err
	}

	switch query := q.(type) {
	case ByID:
		return d.requestByID(ctx, query.ID)
	case ByParams:
		return d.Fill(ctx, query, w)
	case Batch:
		return d.requestBatch(ctx, query, offset, length)
	}

	return nil, fmt.Errorf("%w: unsupported type %T", ErrMalformedQuery, q)
}

func (d *Database) requestByID(ctx context.Context, id any) (*Result, error) {
	if _, ok := record.Key(id); !ok {
		return nil, fmt.Errorf("%w: empty id", ErrMalformedQuery)
	}

	if r, exists := d.store.Get(id); exists {
		return single(r), nil
	}

	return d.Fill(ctx, map[string]any{record.IDAttr: id}, Window{Offset: 0, Length: 1})
}

// requestBatch fails as soon as one sub request fails.
func (d *Database) requestBatch(ctx context.Context, batch Batch, offset, length int) (*Result, error) {

	results := make([]*Result, len(batch))

	g, ctx := errgroup.WithContext(ctx)
	for i, q := range batch {
		g.Go(func() error {
			result, err := d.Request(ctx, q, offset, length)
			if err != nil {
				return fmt.Errorf("batch query %d: %w", i, err)
			}
			results[i] = result
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		return nil, err
	}

	return &Result{Batch: results}, nil
}

// Pluck resolves q and returns the value of attr of every record.
func (d *Database) Pluck(ctx context.Context, attr string, q Query, offset, length int) ([]any, error) {
	result, err := d.Request(ctx, q, offset, length)
	if err != nil {
		return nil, err
	}

	values := []any{}
	for _, r := range result.All() {
		values = append(values, r.Get(attr))
	}
	return values, nil
}

// Pick resolves q and returns the given attributes of every record.
func (d *Database) Pick(ctx context.Context, attrs []string, q Query, offset, length int) ([]record.Record, error) {
	result, err := d.Request(ctx, q, offset, length)
	if err != nil {
		return nil, err
	}

	picked := []record.Record{}
	for _, r := range result.All() {
		picked = append(picked, r.Pick(attrs...))
	}
	return picked, nil
}
