package remote

import (
	"errors"
	"fmt"
	"math"

	json2 "github.com/go-json-experiment/json"
)

// Wire names of the paging metadata merged into every remote request.
const (
	LoadedIDsKey  = "loadedIds"
	InitialKey    = "initial"
	PageLengthKey = "pageLength"
)

var ErrBadRequest = errors.New("bad request")

// Request asks the remote side to fill the gaps of one window: return the
// records matching Params needed to complete [Initial, Initial+PageLength)
// that are not among LoadedIDs.
type Request struct {
	Params     map[string]any
	LoadedIDs  []any
	Initial    int
	PageLength int

	// Options are transport settings passed through untouched, they are not
	// part of the wire payload.
	Options any
}

// Wire returns the payload sent to the remote side: the query params with
// loadedIds, initial and pageLength merged in. Paging metadata wins over
// params with the same name.
func (r *Request) Wire() map[string]any {
	wire := make(map[string]any, len(r.Params)+3)
	for k, v := range r.Params {
		wire[k] = v
	}

	loadedIDs := r.LoadedIDs
	if loadedIDs == nil {
		loadedIDs = []any{}
	}
	wire[LoadedIDsKey] = loadedIDs
	wire[InitialKey] = r.Initial
	wire[PageLengthKey] = r.PageLength

	return wire
}

func (r *Request) MarshalJSON() ([]byte, error) {
	return json2.Marshal(r.Wire(), json2.Deterministic(true))
}

// Key is a canonical serialization of the wire payload: equal requests
// produce equal keys regardless of map ordering.
func (r *Request) Key() (string, error) {
	b, err := json2.Marshal(r.Wire(), json2.Deterministic(true))
	if err != nil {
		return "", fmt.Errorf("canonical request key: %w", err)
	}
	return string(b), nil
}

// ParseRequest decodes a wire payload. Absent metadata defaults to no loaded
// ids, initial 0 and the given page length.
func ParseRequest(data []byte, defaultPageLength int) (*Request, error) {

	wire := map[string]any{}
	err := json2.Unmarshal(data, &wire)
	if err != nil {
		return nil, fmt.Errorf("%w: decode json: %s", ErrBadRequest, err.Error())
	}

	req := &Request{
		Params:     map[string]any{},
		LoadedIDs:  []any{},
		Initial:    0,
		PageLength: defaultPageLength,
	}

	for k, v := range wire {
		switch k {
		case LoadedIDsKey:
			if v == nil {
				continue
			}
			ids, ok := v.([]any)
			if !ok {
				return nil, fmt.Errorf("%w: '%s' must be a list", ErrBadRequest, k)
			}
			req.LoadedIDs = ids
		case InitialKey:
			n, err := wireInt(k, v)
			if err != nil {
				return nil, err
			}
			if n < 0 {
				return nil, fmt.Errorf("%w: '%s' must not be negative", ErrBadRequest, k)
			}
			req.Initial = n
		case PageLengthKey:
			n, err := wireInt(k, v)
			if err != nil {
				return nil, err
			}
			if n <= 0 {
				return nil, fmt.Errorf("%w: '%s' must be positive", ErrBadRequest, k)
			}
			req.PageLength = n
		default:
			req.Params[k] = v
		}
	}

	return req, nil
}

func wireInt(key string, v any) (int, error) {
	f, ok := v.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: '%s' must be an integer", ErrBadRequest, key)
	}
	return int(f), nil
}
