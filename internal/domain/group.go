package domain

import "context"

// Group is the committee or working group a meeting belongs to. Owned by the
// committee CRUD services; this core only reads the display fields for
// description and title synthesis.
type Group struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// GroupProvider resolves group display data.
type GroupProvider interface {
	Get(ctx context.Context, id string) (*Group, error)
}
