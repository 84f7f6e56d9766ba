package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/gapdb/remote"
)

// page answers a gap filling request, the body is the remote wire payload.
func page(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	requestBody, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}

	s := GetServicer(ctx)

	req, err := remote.ParseRequest(requestBody, s.DefaultPageLength())
	if err != nil {
		return err
	}

	return json.NewEncoder(w).Encode(s.Page(req))
}

// insert reads a stream of JSON records.
func insert(ctx context.Context, w http.ResponseWriter, r *http.Request) error {

	n, err := GetServicer(ctx).Load(r.Body)
	if err != nil {
		return fmt.Errorf("%w: %s", remote.ErrBadRequest, err.Error())
	}

	w.WriteHeader(http.StatusCreated)
	return json.NewEncoder(w).Encode(map[string]any{
		"inserted": n,
	})
}

func count(ctx context.Context) any {
	return map[string]any{
		"total": GetServicer(ctx).Len(),
	}
}

func getRecord(ctx context.Context) (any, error) {
	id := box.GetUrlParameter(ctx, "id")
	return GetServicer(ctx).Get(id)
}
