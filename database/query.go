package database

import (
	"fmt"

	"github.com/fulldump/gapdb/record"
)

// Window is one page of a query result.
type Window struct {
	Offset int
	Length int
}

func (w Window) validate() error {
	if w.Offset < 0 {
		return fmt.Errorf("%w: negative offset %d", ErrInvalidWindow, w.Offset)
	}
	if w.Length <= 0 {
		return fmt.Errorf("%w: length %d must be positive", ErrInvalidWindow, w.Length)
	}
	return nil
}

// Query returns the held records matching params in store order. With a
// window only the records in [Offset, Offset+Length) are returned.
func (d *Database) Query(params map[string]any, w *Window) []record.Record {

	skip := 0
	limit := -1
	if w != nil {
		skip = w.Offset
		limit = w.Length
	}

	result := []record.Record{}
	if limit == 0 {
		return result
	}

	d.store.Traverse(func(r record.Record) bool {
		if !d.evaluator.Evaluate(r, params) {
			return true
		}
		if skip > 0 {
			skip--
			return true
		}
		result = append(result, r)
		limit--
		return limit != 0
	})

	return result
}

func ids(records []record.Record) []any {
	result := make([]any, 0, len(records))
	for _, r := range records {
		result = append(result, r.ID())
	}
	return result
}
