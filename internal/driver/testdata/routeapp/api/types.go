package api

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

type Author struct {
	Name   string  `json:"name"`
	Status Status  `json:"status"`
	Bio    *string `json:"bio,omitempty"`
}

// Query is referenced only by a route whose result is unrepresentable.
type Query struct {
	Term string `json:"term"`
}
