package collection

import (
	"sync"

	"github.com/hbomb79/Abode/internal/media"
	"github.com/hbomb79/Abode/pkg/logger"
)

var log = logger.Get("Collection")

type (
	// Consumer receives the full, current, deduplicated URL list for a
	// kind after every completed mutation that touched it - never
	// incremental diffs. A settled upload batch produces exactly one
	// emission, not one per file.
	Consumer interface {
		OnImagesUpdated(urls []string)
		OnVideosUpdated(urls []string)
	}

	// Collection owns the media state for one listing form session. It
	// wraps the pure reducer with a mutex (HTTP handlers and the ingest
	// workers may mutate concurrently), a consumer registration, and
	// the one-emission-per-mutation discipline.
	Collection struct {
		mutex    sync.Mutex
		config   Config
		state    State
		consumer Consumer
		hydrated bool
		closed   bool
	}
)

func New(config Config) *Collection {
	return &Collection{config: config}
}

// SetConsumer registers the callback target for subsequent mutations.
// Registration itself does not emit; the explicit Hydrate step covers
// initial synchronization.
func (collection *Collection) SetConsumer(consumer Consumer) {
	collection.mutex.Lock()
	defer collection.mutex.Unlock()

	collection.consumer = consumer
}

// Hydrate seeds the collection from persisted URL lists and emits the
// seeded state once. It is a one-time step: repeated hydration is
// rejected so that re-renders can never storm the consumer.
func (collection *Collection) Hydrate(images []string, videos []string) bool {
	collection.mutex.Lock()
	defer collection.mutex.Unlock()

	if collection.hydrated || collection.closed {
		return false
	}

	collection.hydrated = true
	collection.state, _ = Reduce(collection.state, Hydrated{Images: images, Videos: videos}, collection.config)
	collection.emit(media.Image, media.Video)
	return true
}

// Apply runs one event through the reducer, adopting the new state and
// emitting the combined sequence for each affected kind exactly once.
// The returned rejections describe entries that could not be admitted
// (capacity); duplicates are suppressed silently and produce nothing.
func (collection *Collection) Apply(event Event) []Rejection {
	collection.mutex.Lock()
	defer collection.mutex.Unlock()

	if collection.closed {
		log.Emit(logger.DEBUG, "Discarding %T event applied to closed collection\n", event)
		return nil
	}

	next, rejections := Reduce(collection.state, event, collection.config)
	collection.state = next
	collection.emit(event.kinds()...)

	return rejections
}

// Close marks the collection as discarded. Results from uploads still
// in flight when the owning session went away will arrive here and be
// silently dropped; no transport-level abort is attempted.
func (collection *Collection) Close() {
	collection.mutex.Lock()
	defer collection.mutex.Unlock()

	collection.closed = true
}

// Items returns the combined, deduplicated sequence for one kind.
func (collection *Collection) Items(kind media.Kind) []media.Item {
	collection.mutex.Lock()
	defer collection.mutex.Unlock()

	return itemsOf(collection.state.kind(kind).combined())
}

// URLs returns the combined sequence for one kind, flattened to the
// URL strings handed to consumers and to the persistence boundary.
func (collection *Collection) URLs(kind media.Kind) []string {
	collection.mutex.Lock()
	defer collection.mutex.Unlock()

	return collection.urlsLocked(kind)
}

// Flatten returns both kind sequences in persistence order: all images
// before all videos.
func (collection *Collection) Flatten() (images []string, videos []string) {
	collection.mutex.Lock()
	defer collection.mutex.Unlock()

	return collection.urlsLocked(media.Image), collection.urlsLocked(media.Video)
}

// Interleaved returns every item of both kinds ordered by admission
// across the whole collection, which is the order the carousel view
// presents - NOT the images-before-videos order used for persistence.
func (collection *Collection) Interleaved() []media.Item {
	collection.mutex.Lock()
	defer collection.mutex.Unlock()

	imageEntries := collection.state.images.combined()
	videoEntries := collection.state.videos.combined()

	merged := make([]entry, 0, len(imageEntries)+len(videoEntries))
	i, v := 0, 0
	for i < len(imageEntries) || v < len(videoEntries) {
		switch {
		case i >= len(imageEntries):
			merged = append(merged, videoEntries[v])
			v++
		case v >= len(videoEntries):
			merged = append(merged, imageEntries[i])
			i++
		case imageEntries[i].seq <= videoEntries[v].seq:
			merged = append(merged, imageEntries[i])
			i++
		default:
			merged = append(merged, videoEntries[v])
			v++
		}
	}

	return itemsOf(merged)
}

func (collection *Collection) urlsLocked(kind media.Kind) []string {
	combined := collection.state.kind(kind).combined()
	urls := make([]string, len(combined))
	for k, e := range combined {
		urls[k] = e.item.URL
	}

	return urls
}

// emit pushes the current combined list for each kind to the consumer.
// Must be called with the mutex held.
func (collection *Collection) emit(kinds ...media.Kind) {
	if collection.consumer == nil {
		return
	}

	for _, kind := range kinds {
		urls := collection.urlsLocked(kind)
		if kind == media.Video {
			collection.consumer.OnVideosUpdated(urls)
		} else {
			collection.consumer.OnImagesUpdated(urls)
		}
	}
}

func itemsOf(entries []entry) []media.Item {
	items := make([]media.Item, len(entries))
	for k, e := range entries {
		item := e.item
		item.Thumbnail = media.Thumbnail(item)
		items[k] = item
	}

	return items
}
