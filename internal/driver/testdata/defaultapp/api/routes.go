package api

import (
	"context"

	"github.com/routegen/routegen/route"
)

type Pong struct {
	Message string `json:"message"`
}

var GetPing = route.Get("/ping", func(ctx context.Context) (Pong, error) {
	return Pong{}, nil
})
