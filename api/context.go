package api

import (
	"context"

	"github.com/fulldump/gapdb/service"
)

type contextKey string

const ContextServicerKey contextKey = "a3f4c2e0-servicer"

func SetServicer(ctx context.Context, s service.Servicer) context.Context {
	return context.WithValue(ctx, ContextServicerKey, s)
}

func GetServicer(ctx context.Context) service.Servicer {
	return ctx.Value(ContextServicerKey).(service.Servicer) // TODO: can raise panic :D
}
