package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/Abode/internal/api"
	"github.com/hbomb79/Abode/internal/database"
	"github.com/hbomb79/Abode/internal/event"
	"github.com/hbomb79/Abode/internal/ingest"
	"github.com/hbomb79/Abode/internal/listing"
	"github.com/hbomb79/Abode/internal/media"
	"github.com/hbomb79/Abode/internal/media/collection"
	"github.com/hbomb79/Abode/internal/upload"
	"github.com/hbomb79/Abode/pkg/logger"
	"github.com/jmoiron/sqlx"
)

var (
	log               = logger.Get("Core")
	validatorInstance = validator.New()
)

type (
	RunnableService interface {
		Run(context.Context) error
	}

	IngestService interface {
		RunnableService
		GetAllIngests() []*ingest.IngestItem
		GetIngest(uuid.UUID) *ingest.IngestItem
		RemoveIngest(uuid.UUID) error
		DiscoverNewFiles()
		ResolveTroubledIngest(itemID uuid.UUID, method ingest.ResolutionType, context map[string]string) error
	}
)

// Abode represents the top-level object for the server, and is responsible
// for initialising the database, stores, services and event handling.
type abodeImpl struct {
	eventBus event.EventCoordinator
	config   AbodeConfig

	db           database.Manager
	listingStore *listing.Store

	classifier  *media.Classifier
	transport   *upload.Transport
	collections *collection.Manager

	restGateway   RunnableService
	ingestService IngestService
}

func New(config AbodeConfig) *abodeImpl {
	log.Emit(logger.DEBUG, "Bootstrapping Abode services using config: %#v\n", config)
	abode := &abodeImpl{
		eventBus:     event.New(),
		config:       config,
		db:           database.New(),
		listingStore: listing.NewStore(),
	}

	abode.classifier = media.NewClassifier(config.Media)
	abode.transport = upload.NewTransport(config.Uploads)
	abode.collections = collection.NewManager(config.Collections, abode, abode.newCollectionConsumer)

	if serv, err := ingest.New(config.IngestService, abode.classifier, abode.transport, abode.collections, abode.eventBus); err == nil {
		abode.ingestService = serv
	} else {
		panic(fmt.Sprintf("failed to construct ingestion service due to error: %s", err.Error()))
	}

	abode.restGateway = api.NewRestGateway(
		&config.RestConfig,
		abode.eventBus,
		abode.ingestService,
		abode,
		abode.collections,
		abode.classifier,
		abode.transport,
	)

	return abode
}

// Run will start all of Abode by bringing up all required services and
// connections. This function will not return until Abode is stopped; to stop
// Abode, the provided context must be cancelled. Errors from which Abode
// cannot recover will also cause it to stop.
func (abode *abodeImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	log.Emit(logger.NEW, "Connecting to database...\n")
	if err := abode.db.Connect(abode.config.Database); err != nil {
		return err
	}

	wg := &sync.WaitGroup{}
	abode.spawnAsyncService(ctx, wg, abode.ingestService, "ingest-service", crashHandler)
	abode.spawnAsyncService(ctx, wg, abode.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Abode services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided function/service as its own
// go-routine, ensuring that the Abode service waitgroup is updated correctly
func (abode *abodeImpl) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}

// CreateListing persists a new DRAFT listing.
func (abode *abodeImpl) CreateListing(title string, description string) (*listing.Listing, error) {
	created, err := abode.listingStore.Create(abode.db.GetSqlxDb(), title, description)
	if err != nil {
		return nil, err
	}

	abode.eventBus.Dispatch(event.LISTING_UPDATE, created.ID)
	return created, nil
}

func (abode *abodeImpl) GetListing(id uuid.UUID) (*listing.Listing, error) {
	return abode.listingStore.Get(abode.db.GetSqlxDb(), id)
}

func (abode *abodeImpl) GetAllListings() ([]*listing.Listing, error) {
	return abode.listingStore.GetAll(abode.db.GetSqlxDb())
}

// DeleteListing removes the listing and discards any open collection
// session for it; upload results still in flight are dropped.
func (abode *abodeImpl) DeleteListing(id uuid.UUID) error {
	if err := abode.listingStore.Delete(abode.db.GetSqlxDb(), id); err != nil {
		return err
	}

	abode.collections.Release(id)
	abode.eventBus.Dispatch(event.LISTING_UPDATE, id)
	return nil
}

// SubmitListing sanitizes the listings persisted media and, if the
// result passes submission validation, transitions it to SUBMITTED.
// The sanitized media replaces the persisted media so that dropped
// URLs do not linger.
func (abode *abodeImpl) SubmitListing(id uuid.UUID) (listing.SanitizedMedia, error) {
	var sanitized listing.SanitizedMedia
	err := abode.db.WrapTx(func(tx *sqlx.Tx) error {
		model, err := abode.listingStore.Get(tx, id)
		if err != nil {
			return err
		}

		sanitized, err = listing.ValidateSubmission(validatorInstance, model)
		if err != nil {
			return err
		}

		if err := abode.listingStore.SaveMedia(tx, id, sanitized.Images, sanitized.Videos); err != nil {
			return err
		}

		return abode.listingStore.Submit(tx, id)
	})
	if err != nil {
		return sanitized, err
	}

	abode.eventBus.Dispatch(event.LISTING_UPDATE, id)
	return sanitized, nil
}

// GetListingMedia satisfies the collection manager's Hydrator; a
// freshly opened collection session is seeded with the persisted URLs.
func (abode *abodeImpl) GetListingMedia(listingID uuid.UUID) ([]string, []string, error) {
	model, err := abode.listingStore.Get(abode.db.GetSqlxDb(), listingID)
	if err != nil {
		return nil, nil, err
	}

	return model.Images, model.Videos, nil
}

// newCollectionConsumer builds the consumer attached to each collection
// session: every emission persists that kind's URL list and announces
// the change on the event bus.
func (abode *abodeImpl) newCollectionConsumer(listingID uuid.UUID) collection.Consumer {
	return &collectionPersister{listingID: listingID, abode: abode}
}

type collectionPersister struct {
	listingID uuid.UUID
	abode     *abodeImpl
}

func (persister *collectionPersister) OnImagesUpdated(urls []string) {
	persister.save(media.Image, urls)
}

func (persister *collectionPersister) OnVideosUpdated(urls []string) {
	persister.save(media.Video, urls)
}

func (persister *collectionPersister) save(kind media.Kind, urls []string) {
	abode := persister.abode
	err := abode.db.WrapTx(func(tx *sqlx.Tx) error {
		model, err := abode.listingStore.Get(tx, persister.listingID)
		if err != nil {
			return err
		}

		images, videos := []string(model.Images), []string(model.Videos)
		if kind == media.Image {
			images = urls
		} else {
			videos = urls
		}

		return abode.listingStore.SaveMedia(tx, persister.listingID, images, videos)
	})
	if err != nil {
		log.Emit(logger.ERROR, "Failed to persist %s collection for listing %s: %v\n", kind, persister.listingID, err)
		return
	}

	abode.eventBus.Dispatch(event.COLLECTION_UPDATE, persister.listingID)
}
