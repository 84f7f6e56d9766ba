package api

import (
	"context"

	"github.com/fulldump/box"

	"github.com/fulldump/gapdb/service"
)

func Build(s service.Servicer, version, apiKey, apiSecret string) *box.B {

	b := box.NewBox()

	v1 := b.Resource("/v1")
	v1.WithInterceptors(
		box.SetResponseHeader("Content-Type", "application/json"),
		Authenticate(apiKey, apiSecret),
		injectServicer(s),
	)

	v1.Resource("/records").
		WithActions(
			box.Post(page),
			box.ActionPost(insert),
			box.Action(count),
		)

	v1.Resource("/records/{id}").
		WithActions(
			box.Get(getRecord),
		)

	b.Resource("/release").
		WithActions(box.Get(func() string {
			return version
		}))

	return b
}

func injectServicer(s service.Servicer) box.I {
	return func(next box.H) box.H {
		return func(ctx context.Context) {
			next(SetServicer(ctx, s))
		}
	}
}
