package server

import (
	"context"

	"github.com/muurk/glucometer/internal/store"
)

// Publisher receives feed events
type Publisher interface {
	Publish(Event)
}

// PublishingStore wraps a store and publishes every newly stored measurement
type PublishingStore struct {
	store.Store
	pub Publisher
}

// NewPublishingStore decorates s so successful inserts reach pub
func NewPublishingStore(s store.Store, pub Publisher) *PublishingStore {
	return &PublishingStore{Store: s, pub: pub}
}

// InsertMeasurement stores the reading and publishes it if it was new
func (p *PublishingStore) InsertMeasurement(ctx context.Context, glucose int, timestamp, device string) error {
	if err := p.Store.InsertMeasurement(ctx, glucose, timestamp, device); err != nil {
		return err
	}
	p.pub.Publish(Event{
		Glucose:   glucose,
		Timestamp: timestamp,
		Device:    device,
		Session:   store.SessionFromContext(ctx),
	})
	return nil
}
