package api

import (
	"context"

	"example.test/discoverapp/rt"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

type Note struct {
	Title  string `json:"title"`
	Status Status `json:"status"`
}

var GetNote = rt.Get("/notes/:id", func(ctx context.Context, id string) (Note, error) {
	return Note{}, nil
})

var CreateNote = rt.Post("/notes", createNote)

func createNote(ctx context.Context, in Note) (Note, error) { return in, nil }

var ReplaceNote = rt.Handle("PUT", "/notes/:id", func(ctx context.Context, id string, in Note) (Note, error) {
	return in, nil
})

var NoteSocket = rt.WS("/notes/live", func(ctx context.Context, in Note) (Note, error) {
	return in, nil
})

var WatchNotes = rt.Stream("/notes/watch", func(ctx context.Context) (<-chan Note, error) {
	return nil, nil
})

var DescribedNote = rt.Get("/notes/described", func(ctx context.Context) (Note, error) {
	return Note{}, nil
}).Describe("returns a described note")

var ActivateNote = rt.Post("/notes/:id/activate", func(ctx context.Context, id string) (Note, error) {
	return Note{Status: StatusActive}, nil
})

var dynamicPath = "/notes/dynamic"

var DynamicNote = rt.Get(dynamicPath, func(ctx context.Context) (Note, error) {
	return Note{}, nil
})

var MissingContext = rt.Get("/bad/context", func(id string) (Note, error) {
	return Note{}, nil
})

var VariadicNote = rt.Get("/bad/variadic", func(ctx context.Context, ids ...string) error {
	return nil
})

var internalNote = rt.Get("/internal", func(ctx context.Context) error { return nil })

var Banner = "not a route"
