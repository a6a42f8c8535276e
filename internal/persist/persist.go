package persist

import (
	"context"
	"fmt"
	"time"

	"cardboard/internal/model"
)

// Backend is the CRUD layer the coordinator writes through.
type Backend interface {
	LoadCards(ctx context.Context, pageID string) ([]model.Card, error)
	UpsertCards(ctx context.Context, pageID string, cards []model.Card) error
	DeleteCard(ctx context.Context, pageID, cardID string) error
}

// Beacon is a one-shot, fire-and-forget transport used on unload. Send must
// not block and must tolerate the payload never arriving.
type Beacon interface {
	Send(p Payload)
}

// Beacons fans a payload out to several beacons.
type Beacons []Beacon

func (bs Beacons) Send(p Payload) {
	for _, b := range bs {
		if b != nil {
			b.Send(p)
		}
	}
}

// BeaconFunc adapts a function to Beacon.
type BeaconFunc func(Payload)

func (f BeaconFunc) Send(p Payload) { f(p) }

// Payload is what both flush paths send: cards to upsert and IDs to delete.
type Payload struct {
	PageID  string       `json:"pageId"`
	Cards   []model.Card `json:"cards"`
	Deleted []string     `json:"deleted,omitempty"`
	Stamp   time.Time    `json:"stamp"`
}

func (p Payload) Empty() bool { return len(p.Cards) == 0 && len(p.Deleted) == 0 }

type Status string

const (
	StatusSaved   Status = "saved"
	StatusPending Status = "pending"
	StatusSaving  Status = "saving"
	StatusUnsaved Status = "unsaved"
)

// WriteError is a failed write. Local state is kept and the next change
// retries.
type WriteError struct {
	PageID string
	Op     string
	Err    error
}

func (e WriteError) Error() string {
	return fmt.Sprintf("persist %s (page %s): %v", e.Op, e.PageID, e.Err)
}

func (e WriteError) Unwrap() error { return e.Err }
