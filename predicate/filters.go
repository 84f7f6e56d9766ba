package predicate

import (
	"github.com/fulldump/gapdb/record"
)

// Contains matches when the stored and required values share at least one
// element. Either side may be a scalar or a list.
func Contains(stored, required any, _ record.Record) bool {
	storedValues, storedIsList := stored.([]any)
	requiredValues, requiredIsList := required.([]any)

	switch {
	case !storedIsList && !requiredIsList:
		return record.Loose(stored, required)
	case !storedIsList:
		return contains(requiredValues, stored)
	case !requiredIsList:
		return contains(storedValues, required)
	}

	for _, value := range requiredValues {
		if contains(storedValues, value) {
			return true
		}
	}
	return false
}

func contains(list []any, value any) bool {
	for _, item := range list {
		if record.Loose(item, value) {
			return true
		}
	}
	return false
}
