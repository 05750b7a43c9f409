package api

import (
	"context"

	"example.test/routeapp/rt"
)

type Note struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

var GetNote = rt.Get("/notes/:id", func(ctx context.Context, id string) (Note, error) {
	return Note{}, nil
})
