package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/Abode/internal/event"
	"github.com/hbomb79/Abode/internal/media"
	"github.com/hbomb79/Abode/internal/media/collection"
	"github.com/hbomb79/Abode/pkg/logger"
	"github.com/hbomb79/Abode/pkg/worker"
	"github.com/rjeczalik/notify"
)

var log = logger.Get("IngestServ")

type (
	fileClassifier interface {
		ClassifyFile(media.LocalFile) media.Classification
	}

	uploadTransport interface {
		Upload(ctx context.Context, file media.LocalFile, kind media.Kind) (string, error)
	}

	collectionStore interface {
		Collection(listingID uuid.UUID) (*collection.Collection, error)
	}

	// ingestService watches the drop directory for media files and runs
	// each one through the classification -> upload -> collection
	// pipeline. Detected files are:
	// - Held until their modtime indicates the copy has finished
	// - Classified as image or video (or stalled as TROUBLED)
	// - Uploaded to remote storage for their canonical HTTPS URL
	// - Admitted to the media collection of the listing their directory names
	ingestService struct {
		*sync.Mutex

		classifier  fileClassifier
		transport   uploadTransport
		collections collectionStore
		eventBus    event.EventCoordinator

		config           Config
		items            []*IngestItem
		importHoldTimers map[uuid.UUID]*time.Timer
		workerPool       *worker.WorkerPool
	}
)

// New creates a new ingest service, using the provided config for
// subsequent calls to 'Run'.
//
// The configs 'IngestPath' is validated to be an existing directory.
// If the directory is missing it will be created; if the path provided
// points to an existing FILE, an error is returned.
func New(config Config, classifier fileClassifier, transport uploadTransport, collections collectionStore, eventBus event.EventCoordinator) (*ingestService, error) {
	if info, err := os.Stat(config.IngestPath); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("ingestion path '%s' is not a directory", config.IngestPath)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(config.IngestPath, os.ModeDir|os.ModePerm); err != nil {
			return nil, fmt.Errorf("ingestion path '%s' could not be created: %w", config.IngestPath, err)
		}
	} else {
		return nil, fmt.Errorf("ingestion path '%s' could not be accessed: %w", config.IngestPath, err)
	}

	service := &ingestService{
		Mutex:            &sync.Mutex{},
		classifier:       classifier,
		transport:        transport,
		collections:      collections,
		eventBus:         eventBus,
		config:           config,
		items:            make([]*IngestItem, 0),
		importHoldTimers: make(map[uuid.UUID]*time.Timer),
		workerPool:       worker.NewWorkerPool(),
	}

	for i := 0; i < config.IngestionParallelism; i++ {
		label := fmt.Sprintf("ingest-worker-%d", i)
		service.workerPool.PushWorker(worker.NewWorker(label, service.PerformItemIngest))
	}

	return service, nil
}

// Run is the main entry point of this service. It subscribes to file
// system change notifications for the drop directory, and additionally
// polls it on a regular interval in case the watcher fails. To kill
// the service, the calling code should cancel the context provided.
func (service *ingestService) Run(ctx context.Context) error {
	fsNotifyChannel := make(chan notify.EventInfo, 16)
	if err := notify.Watch(filepath.Join(service.config.IngestPath, "..."), fsNotifyChannel, notify.Create, notify.Rename); err != nil {
		return fmt.Errorf("failed to watch ingest directory: %w", err)
	}
	defer notify.Stop(fsNotifyChannel)

	forceIngestChannel := time.NewTicker(time.Second * time.Duration(service.config.ForceSyncSeconds))
	defer forceIngestChannel.Stop()
	defer service.clearAllImportHoldTimers()

	service.workerPool.Start()
	defer service.workerPool.Close()

	service.DiscoverNewFiles()

	for {
		select {
		case <-fsNotifyChannel:
			service.DiscoverNewFiles()
		case <-forceIngestChannel.C:
			service.DiscoverNewFiles()
		case <-ctx.Done():
			return nil
		}
	}
}

// PerformItemIngest is the worker function for this service, called by
// the services worker pool. It claims the first IDLE item it finds and
// attempts to ingest it; if the ingestion fails with a Trouble then it
// is set on the item and its state set to TROUBLED.
func (service *ingestService) PerformItemIngest(w worker.Worker) (bool, error) {
	item := service.claimIdleItem()
	if item == nil {
		return false, nil
	}

	err := item.ingest(service.eventBus, service.classifier, service.transport, service.collections, service.config.IngestPath)

	service.Lock()
	defer service.Unlock()
	if err != nil {
		var trbl Trouble
		if errors.As(err, &trbl) {
			log.Emit(logger.WARNING, "Ingestion of item %s stalled: %s\n", item, err.Error())
			item.Trouble = &trbl
			item.State = TROUBLED
			service.eventBus.Dispatch(event.INGEST_UPDATE, item.ID)
			return true, nil
		}

		return false, err
	}

	item.State = COMPLETE
	service.eventBus.Dispatch(event.INGEST_UPDATE, item.ID)
	return true, nil
}

// DiscoverNewFiles scans the drop directory for files that no current
// item in this service represents, creating IDLE (or IMPORT_HOLD)
// items for each.
//
// Note: This function will take ownership of the mutex, and releases it when returning
func (service *ingestService) DiscoverNewFiles() {
	service.Lock()
	defer service.Unlock()

	knownPaths := make(map[string]bool, len(service.items))
	for _, item := range service.items {
		knownPaths[item.Path] = true
	}

	newItems, err := recursivelyWalkFileSystem(service.config.IngestPath, knownPaths)
	if err != nil {
		log.Emit(logger.ERROR, "File system polling failed: %s\n", err.Error())
		return
	}

	minModtimeAge := service.config.RequiredModTimeAgeDuration()
	dirty := false
	for itemPath, itemInfo := range newItems {
		itemID := uuid.New()
		timeDiff := time.Since(itemInfo.ModTime())

		itemState := IMPORT_HOLD
		if timeDiff > minModtimeAge {
			dirty = true
			itemState = IDLE
		}

		ingestItem := &IngestItem{
			ID:    itemID,
			Path:  itemPath,
			State: itemState,
		}

		service.items = append(service.items, ingestItem)
		if itemState == IMPORT_HOLD {
			service.scheduleImportHoldTimer(itemID, minModtimeAge-timeDiff)
		}
	}

	if dirty {
		service.wakeupWorkerPool()
	}
}

// RemoveIngest looks for an item with the ID provided in the services
// state, and removes it if it's found. This method *fails* if the item
// is currently INGESTING, as interrupting the ingestion is not
// possible. It does not error if the ID does not exist.
//
// Note: This function takes ownership of the mutex and releases it on return
func (service *ingestService) RemoveIngest(itemID uuid.UUID) error {
	service.Lock()
	defer service.Unlock()

	return service.removeIngestLocked(itemID)
}

func (service *ingestService) removeIngestLocked(itemID uuid.UUID) error {
	for k, v := range service.items {
		if v.ID == itemID {
			if v.State == INGESTING {
				return fmt.Errorf("cannot remove item %v as a worker is currently ingesting it", itemID)
			}

			service.clearImportHoldTimer(itemID)
			service.items = append(service.items[:k], service.items[k+1:]...)
			return nil
		}
	}

	return nil
}

// GetIngest accepts the ID of an ingest item and attempts to find it
// in the services queue. If it cannot be found, nil is returned.
func (service *ingestService) GetIngest(itemID uuid.UUID) *IngestItem {
	service.Lock()
	defer service.Unlock()

	return service.getIngestLocked(itemID)
}

func (service *ingestService) getIngestLocked(itemID uuid.UUID) *IngestItem {
	for _, item := range service.items {
		if item.ID == itemID {
			return item
		}
	}

	return nil
}

// GetAllIngests returns all the IngestItems known to this service.
func (service *ingestService) GetAllIngests() []*IngestItem {
	service.Lock()
	defer service.Unlock()

	return append([]*IngestItem(nil), service.items...)
}

// ResolveTroubledIngest applies a resolution to a TROUBLED item:
// aborting removes the item, retrying returns it to IDLE, and
// assigning a listing overrides the listing derived from its path
// before returning it to IDLE.
func (service *ingestService) ResolveTroubledIngest(itemID uuid.UUID, method ResolutionType, context map[string]string) error {
	service.Lock()
	defer service.Unlock()

	item := service.getIngestLocked(itemID)
	if item == nil {
		return ErrIngestNotFound
	}
	if item.State != TROUBLED || item.Trouble == nil {
		return ErrNoTrouble
	}

	resolution, err := item.Trouble.GenerateResolution(method, context)
	if err != nil {
		return err
	}

	switch res := resolution.(type) {
	case *AbortResolution:
		return service.removeIngestLocked(itemID)
	case *RetryResolution:
		item.Trouble = nil
		item.State = IDLE
	case *ListingResolution:
		item.Trouble = nil
		item.OverrideListingID = &res.listingID
		item.State = IDLE
	}

	service.eventBus.Dispatch(event.INGEST_UPDATE, item.ID)
	service.wakeupWorkerPool()
	return nil
}

// evaluateItemHold accepts the ID of an item that is on IMPORT_HOLD
// and checks its modtime to see if the item can be moved on to the
// IDLE state. If the items source file no longer exists, the item is
// removed from the services state; if the modtime threshold is still
// unmet, a new timer is scheduled.
//
// Note: this function takes ownership of the mutex, and releases it when returning
func (service *ingestService) evaluateItemHold(id uuid.UUID) {
	service.Lock()
	defer service.Unlock()

	item := service.getIngestLocked(id)
	if item == nil || item.State != IMPORT_HOLD {
		return
	}

	timeDiff, err := item.modtimeDiff()
	if err != nil {
		// Item's source file has gone away!
		service.removeIngestLocked(id)
		return
	}

	thresholdModTime := service.config.RequiredModTimeAgeDuration()
	if *timeDiff < thresholdModTime {
		service.scheduleImportHoldTimer(id, thresholdModTime-*timeDiff)
		return
	}

	item.State = IDLE
	service.wakeupWorkerPool()
}

// scheduleImportHoldTimer will call evaluateItemHold for the item
// provided after the delay specified has elapsed. Any existing import
// hold timer for the item is *cancelled* before the new timer is created.
func (service *ingestService) scheduleImportHoldTimer(id uuid.UUID, delay time.Duration) {
	service.clearImportHoldTimer(id)
	service.importHoldTimers[id] = time.AfterFunc(delay, func() {
		service.evaluateItemHold(id)
	})
}

func (service *ingestService) clearImportHoldTimer(id uuid.UUID) {
	if timer, ok := service.importHoldTimers[id]; ok {
		timer.Stop()
		delete(service.importHoldTimers, id)
	}
}

func (service *ingestService) clearAllImportHoldTimers() {
	service.Lock()
	defer service.Unlock()

	for key, timer := range service.importHoldTimers {
		timer.Stop()
		delete(service.importHoldTimers, key)
	}
}

// claimIdleItem will try and find an IDLE item in the ingest service,
// and set its state to INGESTING to prevent another worker from
// claiming it once the mutex lock is released.
//
// Note: This function takes ownership of the mutex, and releases it when returning
func (service *ingestService) claimIdleItem() *IngestItem {
	service.Lock()
	defer service.Unlock()

	for _, item := range service.items {
		if item.State == IDLE {
			item.State = INGESTING
			return item
		}
	}

	return nil
}

func (service *ingestService) wakeupWorkerPool() {
	service.workerPool.WakeupWorkers()
}

// recursivelyWalkFileSystem walks the file system starting at the
// directory provided and constructs a map of all the files inside
// (including inside nested directories). Files whose paths are in the
// 'known' map are NOT included in the result.
func recursivelyWalkFileSystem(rootDirPath string, known map[string]bool) (map[string]fs.FileInfo, error) {
	foundItems := make(map[string]fs.FileInfo, 0)
	err := filepath.WalkDir(rootDirPath, func(path string, dir fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !dir.IsDir() {
			fileInfo, err := dir.Info()
			if err != nil {
				return err
			}

			if _, ok := known[path]; !ok {
				foundItems[path] = fileInfo
			}
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to walk file system: %s", err.Error())
	}

	return foundItems, nil
}
