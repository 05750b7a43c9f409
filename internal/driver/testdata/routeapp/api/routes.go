package api

import (
	"context"

	"example.test/routeapp/rt"
)

var GetAuthor = rt.Get("/authors/:id", func(ctx context.Context, id string) (Author, error) {
	return Author{}, nil
})

var CreateAuthor = rt.Post("/authors", func(ctx context.Context, in Author) (Author, error) {
	return in, nil
})

var WatchAuthors = rt.Stream("/authors/watch", func(ctx context.Context) (<-chan Author, error) {
	return nil, nil
})

var BrokenAuthors = rt.Get("/authors/broken", func(ctx context.Context) (func() error, error) {
	return nil, nil
})

var BrokenSearch = rt.Post("/authors/search", func(ctx context.Context, q Query) (func() error, error) {
	return nil, nil
})
