package badgerdb

import (
	"context"
	"encoding/gob"
	"sync"

	"github.com/timshannon/badgerhold/v4"
	"github.com/vortexlabs/vortexd/internal/core/domain"
)

func init() {
	gob.Register(domain.RoundStarted{})
	gob.Register(domain.OutputsRegistrationStarted{})
	gob.Register(domain.SigningStarted{})
	gob.Register(domain.RoundSigned{})
	gob.Register(domain.RoundFailed{})
}

// eventRow is the on-disk envelope for one event in a round's log; Events
// is stored as the domain.Event interface, and the concrete event types
// are gob-registered in this file's init so they decode to their own types.
type eventRow struct {
	RoundId string
	Topic   string
	Events  []domain.Event
}

type eventRepository struct {
	store *badgerhold.Store

	lock     sync.RWMutex
	handlers map[string][]func(events []domain.Event)
}

func newEventRepository(store *badgerhold.Store) domain.EventRepository {
	return &eventRepository{
		store:    store,
		handlers: make(map[string][]func(events []domain.Event)),
	}
}

func (e *eventRepository) Save(ctx context.Context, topic, roundId string, events []domain.Event) error {
	err := retryOnConflict(func() error {
		var row eventRow
		if err := e.store.Get(roundId, &row); err == nil {
			row.Events = append(row.Events, events...)
			return e.store.Update(roundId, row)
		}
		return e.store.Insert(roundId, eventRow{RoundId: roundId, Topic: topic, Events: events})
	})
	if err != nil {
		return err
	}

	e.lock.RLock()
	handlers := append([]func(events []domain.Event){}, e.handlers[topic]...)
	e.lock.RUnlock()
	for _, handler := range handlers {
		handler(events)
	}
	return nil
}

func (e *eventRepository) Load(ctx context.Context, roundId string) ([]domain.Event, error) {
	var row eventRow
	if err := e.store.Get(roundId, &row); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return row.Events, nil
}

func (e *eventRepository) RegisterEventsHandler(topic string, handler func(events []domain.Event)) {
	e.lock.Lock()
	defer e.lock.Unlock()
	e.handlers[topic] = append(e.handlers[topic], handler)
}

func (e *eventRepository) Close() {
	// nolint
	e.store.Close()
}
