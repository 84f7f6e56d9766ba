package database

import (
	"github.com/fulldump/gapdb/record"
)

// Result is what a request resolves to: a list of records, at most one
// record (Single) or one result per query of a batch.
type Result struct {
	Records []record.Record
	Single  bool
	Batch   []*Result
}

func single(r record.Record) *Result {
	result := &Result{
		Records: []record.Record{},
		Single:  true,
	}
	if r != nil {
		result.Records = append(result.Records, r)
	}
	return result
}

// One returns the first record or nil.
func (r *Result) One() record.Record {
	all := r.All()
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// All returns every record, batch results flattened in query order.
func (r *Result) All() []record.Record {
	if r.Batch == nil {
		return r.Records
	}

	all := []record.Record{}
	for _, sub := range r.Batch {
		all = append(all, sub.All()...)
	}
	return all
}

func (r *Result) Len() int {
	return len(r.All())
}
