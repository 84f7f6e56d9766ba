package service

import (
	"errors"
	"io"

	"github.com/fulldump/gapdb/record"
	"github.com/fulldump/gapdb/remote"
)

var ErrorRecordNotFound = errors.New("record not found")

type Servicer interface { // todo: review naming
	Insert(records ...record.Record) (int, error)
	Load(r io.Reader) (int, error)
	Get(id any) (record.Record, error)
	Len() int
	Page(req *remote.Request) []record.Record
	DefaultPageLength() int
}
