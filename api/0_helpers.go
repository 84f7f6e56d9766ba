package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/fulldump/box"

	"github.com/fulldump/gapdb/remote"
	"github.com/fulldump/gapdb/service"
)

type PrettyError struct {
	Message     string `json:"message"`
	Description string `json:"description"`
}

func (p PrettyError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"error": struct {
			Message     string `json:"message"`
			Description string `json:"description"`
		}{
			p.Message,
			p.Description,
		},
	})
}

func (p PrettyError) MarshalTo(w io.Writer) error {
	return json.NewEncoder(w).Encode(p)
}

func writePrettyError(w http.ResponseWriter, status int, err error, description string) {
	w.WriteHeader(status)
	PrettyError{
		Message:     err.Error(),
		Description: description,
	}.MarshalTo(w)
}

func PrettyErrorInterceptor(next box.H) box.H {
	return func(ctx context.Context) {

		next(ctx)

		err := box.GetError(ctx)
		if err == nil {
			return
		}
		w := box.GetResponse(ctx)

		switch {
		case err == ErrUnauthorized:
			writePrettyError(w, http.StatusUnauthorized, err, "user is not authenticated")
		case err == box.ErrResourceNotFound:
			writePrettyError(w, http.StatusNotFound, err, fmt.Sprintf("resource '%s' not found", box.GetRequest(ctx).URL.String()))
		case err == box.ErrMethodNotAllowed:
			writePrettyError(w, http.StatusMethodNotAllowed, err, fmt.Sprintf("method '%s' not allowed", box.GetRequest(ctx).Method))
		case errors.Is(err, service.ErrorRecordNotFound):
			writePrettyError(w, http.StatusNotFound, err, fmt.Sprintf("record '%s' not found", box.GetUrlParameter(ctx, "id")))
		case errors.Is(err, remote.ErrBadRequest):
			writePrettyError(w, http.StatusBadRequest, err, "Malformed request")
		default:
			var syntaxError *json.SyntaxError
			if errors.As(err, &syntaxError) {
				writePrettyError(w, http.StatusBadRequest, err, "Malformed JSON")
				return
			}
			writePrettyError(w, http.StatusInternalServerError, err, "Unexpected error")
		}
	}
}
