package collection

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type (
	// Hydrator supplies the persisted media of a listing when a
	// collection session is first opened for it.
	Hydrator interface {
		GetListingMedia(listingID uuid.UUID) (images []string, videos []string, err error)
	}

	// ConsumerFactory builds the consumer a freshly opened collection
	// will emit to; it is given the listing the collection belongs to.
	ConsumerFactory func(listingID uuid.UUID) Consumer

	// Manager tracks the open collection session of each listing. A
	// collection is created lazily on first access, hydrated once from
	// the persisted listing media, and owned exclusively by that
	// listing until Release discards it.
	Manager struct {
		mutex       sync.Mutex
		config      Config
		hydrator    Hydrator
		newConsumer ConsumerFactory
		sessions    map[uuid.UUID]*Collection
	}
)

func NewManager(config Config, hydrator Hydrator, newConsumer ConsumerFactory) *Manager {
	return &Manager{
		config:      config,
		hydrator:    hydrator,
		newConsumer: newConsumer,
		sessions:    make(map[uuid.UUID]*Collection),
	}
}

// Collection returns the open collection for the listing provided,
// opening and hydrating one if this is the first access.
func (manager *Manager) Collection(listingID uuid.UUID) (*Collection, error) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if existing, ok := manager.sessions[listingID]; ok {
		return existing, nil
	}

	images, videos, err := manager.hydrator.GetListingMedia(listingID)
	if err != nil {
		return nil, fmt.Errorf("cannot open media collection for listing %s: %w", listingID, err)
	}

	opened := New(manager.config)
	if manager.newConsumer != nil {
		opened.SetConsumer(manager.newConsumer(listingID))
	}
	opened.Hydrate(images, videos)

	manager.sessions[listingID] = opened
	return opened, nil
}

// Release closes and discards the listing's collection session, if one
// is open. In-flight upload results targeting the closed collection are
// dropped on arrival.
func (manager *Manager) Release(listingID uuid.UUID) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	if session, ok := manager.sessions[listingID]; ok {
		session.Close()
		delete(manager.sessions, listingID)
	}
}
