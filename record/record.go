package record

import (
	"github.com/fulldump/gapdb/utils"
)

// IDAttr is the attribute that identifies a record.
const IDAttr = "id"

// Record is a single addressable entity. Records handed out by the store are
// shared, treat them as read only and use Merge or Clone to derive new ones.
type Record map[string]any

func (r Record) ID() any {
	return r[IDAttr]
}

// Key returns the canonical identity of the record, see Key.
func (r Record) Key() (string, bool) {
	return Key(r[IDAttr])
}

func (r Record) Get(attr string) any {
	return r[attr]
}

// Pick returns a new record holding only the given attributes that are
// present in r.
func (r Record) Pick(attrs ...string) Record {
	picked := Record{}
	for _, attr := range attrs {
		if value, exists := r[attr]; exists {
			picked[attr] = value
		}
	}
	return picked
}

func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Merge returns a new record with the attributes of r overwritten by the ones
// of other.
func (r Record) Merge(other Record) Record {
	merged := make(Record, len(r)+len(other))
	for k, v := range r {
		merged[k] = v
	}
	for k, v := range other {
		merged[k] = v
	}
	return merged
}

// FromStruct converts any JSON serializable value into a Record.
func FromStruct(v any) (Record, error) {
	r := Record{}
	err := utils.Remarshal(v, &r)
	if err != nil {
		return nil, err
	}
	return r, nil
}
