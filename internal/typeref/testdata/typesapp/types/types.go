package types

import "time"

type UserID = string

type Status string

const (
	StatusPending Status = "pending"
	StatusActive  Status = "active"
)

type audit struct {
	CreatedBy string `json:"created_by"`
}

type Profile struct {
	audit
	ID      UserID            `json:"id"`
	Status  Status            `json:"status"`
	Created time.Time         `json:"created"`
	Tags    []string          `json:"tags,omitempty"`
	Meta    map[string]string `json:"meta"`
	Parent  *Profile          `json:"parent"`
	secret  string
}

type Attachment struct {
	Data []byte `json:"data"`
	Size int    `json:"size"`
}
