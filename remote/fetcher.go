// Package remote defines the collaborators a database uses to reach the
// remote side and the wire shape of the requests it sends.
package remote

import (
	"context"
	"encoding/json"
	"fmt"

	json2 "github.com/go-json-experiment/json"

	"github.com/fulldump/gapdb/record"
)

// Fetcher sends a request to the remote side and returns the raw record
// payloads it answered with.
type Fetcher interface {
	Fetch(ctx context.Context, req *Request) ([]json.RawMessage, error)
}

type FetcherFunc func(ctx context.Context, req *Request) ([]json.RawMessage, error)

func (f FetcherFunc) Fetch(ctx context.Context, req *Request) ([]json.RawMessage, error) {
	return f(ctx, req)
}

// Parser turns one raw payload into zero or more records.
type Parser func(raw json.RawMessage) ([]record.Record, error)

// ParseRecords accepts an object (one record), a list of objects or null.
func ParseRecords(raw json.RawMessage) ([]record.Record, error) {

	var value any
	err := json2.Unmarshal(raw, &value)
	if err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	switch v := value.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return []record.Record{v}, nil
	case []any:
		records := make([]record.Record, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("payload item %d is not an object", i)
			}
			records = append(records, m)
		}
		return records, nil
	}

	return nil, fmt.Errorf("unexpected payload type %T", value)
}

// Encode is the inverse of ParseRecords for a list of records, handy to
// build fetcher answers.
func Encode(records ...record.Record) ([]json.RawMessage, error) {
	raws := make([]json.RawMessage, 0, len(records))
	for _, r := range records {
		b, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
		raws = append(raws, b)
	}
	return raws, nil
}
