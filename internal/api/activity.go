package api

import (
	"github.com/google/uuid"
	"github.com/hbomb79/Abode/internal/api/ingests"
	"github.com/hbomb79/Abode/internal/api/listings"
	"github.com/hbomb79/Abode/internal/api/medias"
	"github.com/hbomb79/Abode/internal/event"
	"github.com/hbomb79/Abode/internal/http/websocket"
	"github.com/hbomb79/Abode/pkg/logger"
)

const (
	TITLE_INGEST_UPDATE     = "INGEST_UPDATE"
	TITLE_COLLECTION_UPDATE = "COLLECTION_UPDATE"
	TITLE_UPLOAD_COMPLETE   = "UPLOAD_COMPLETE"
	TITLE_LISTING_UPDATE    = "LISTING_UPDATE"
)

type (
	IngestUpdate struct {
		IngestId uuid.UUID          `json:"ingest_id"`
		Ingest   *ingests.IngestDto `json:"ingest"`
	}

	// broadcaster translates internal bus events in to websocket frames
	// pushed to every connected client. Payload lookups run at dispatch
	// time so the frame always reflects the latest state, not the state
	// at the moment the event was raised.
	broadcaster struct {
		socketHub      *websocket.SocketHub
		ingestService  ingests.IngestService
		collections    medias.CollectionService
		listingService listings.ListingService
	}
)

func newBroadcaster(
	socketHub *websocket.SocketHub,
	ingestService ingests.IngestService,
	collections medias.CollectionService,
	listingService listings.ListingService,
) *broadcaster {
	return &broadcaster{socketHub, ingestService, collections, listingService}
}

// RegisterEventHandlers subscribes this broadcaster to the bus events
// it knows how to translate. Handlers run asynchronously so a slow
// socket never blocks a dispatching service.
func (hub *broadcaster) RegisterEventHandlers(handler event.EventHandler) {
	handler.RegisterAsyncHandlerFunction(event.INGEST_UPDATE, func(_ event.Event, payload event.Payload) {
		if id, ok := payload.(uuid.UUID); ok {
			hub.BroadcastIngestUpdate(id)
		}
	})
	handler.RegisterAsyncHandlerFunction(event.INGEST_COMPLETE, func(_ event.Event, payload event.Payload) {
		if id, ok := payload.(uuid.UUID); ok {
			hub.BroadcastIngestUpdate(id)
		}
	})
	handler.RegisterAsyncHandlerFunction(event.COLLECTION_UPDATE, func(_ event.Event, payload event.Payload) {
		if id, ok := payload.(uuid.UUID); ok {
			hub.BroadcastCollectionUpdate(id)
		}
	})
	handler.RegisterAsyncHandlerFunction(event.UPLOAD_COMPLETE, func(_ event.Event, payload event.Payload) {
		if id, ok := payload.(uuid.UUID); ok {
			hub.BroadcastUploadComplete(id)
		}
	})
	handler.RegisterAsyncHandlerFunction(event.LISTING_UPDATE, func(_ event.Event, payload event.Payload) {
		if id, ok := payload.(uuid.UUID); ok {
			hub.BroadcastListingUpdate(id)
		}
	})
}

// BroadcastIngestUpdate pushes the latest state of the ingest item to
// all clients. A nil item is still broadcast (with a nil body) so
// clients learn about removals.
func (hub *broadcaster) BroadcastIngestUpdate(id uuid.UUID) {
	update := IngestUpdate{IngestId: id}
	if item := hub.ingestService.GetIngest(id); item != nil {
		update.Ingest = ingests.NewDto(item)
	}

	hub.broadcast(TITLE_INGEST_UPDATE, update)
}

func (hub *broadcaster) BroadcastCollectionUpdate(listingID uuid.UUID) {
	target, err := hub.collections.Collection(listingID)
	if err != nil {
		log.Emit(logger.WARNING, "Dropping collection update broadcast for listing %s: %v\n", listingID, err)
		return
	}

	hub.broadcast(TITLE_COLLECTION_UPDATE, medias.NewCollectionDto(listingID, target))
}

// BroadcastUploadComplete announces that an upload batch for the
// listing has fully settled, distinct from the incremental collection
// updates raised as each result was admitted.
func (hub *broadcaster) BroadcastUploadComplete(listingID uuid.UUID) {
	target, err := hub.collections.Collection(listingID)
	if err != nil {
		log.Emit(logger.WARNING, "Dropping upload complete broadcast for listing %s: %v\n", listingID, err)
		return
	}

	hub.broadcast(TITLE_UPLOAD_COMPLETE, medias.NewCollectionDto(listingID, target))
}

func (hub *broadcaster) BroadcastListingUpdate(id uuid.UUID) {
	model, err := hub.listingService.GetListing(id)
	if err != nil {
		log.Emit(logger.WARNING, "Dropping listing update broadcast for listing %s: %v\n", id, err)
		return
	}

	hub.broadcast(TITLE_LISTING_UPDATE, listings.NewDto(model))
}

func (hub *broadcaster) broadcast(title string, update any) {
	hub.socketHub.Send(&websocket.SocketMessage{
		Title: title,
		Body:  map[string]interface{}{"arguments": update},
		Type:  websocket.Update,
	})
}
