package collection_test

import (
	"fmt"
	"testing"

	"github.com/hbomb79/Abode/internal/media"
	"github.com/hbomb79/Abode/internal/media/collection"
	"github.com/stretchr/testify/assert"
)

// recordingConsumer captures every emission so tests can assert both
// the content and the number of callbacks per mutation.
type recordingConsumer struct {
	imageEmissions [][]string
	videoEmissions [][]string
}

func (consumer *recordingConsumer) OnImagesUpdated(urls []string) {
	consumer.imageEmissions = append(consumer.imageEmissions, urls)
}

func (consumer *recordingConsumer) OnVideosUpdated(urls []string) {
	consumer.videoEmissions = append(consumer.videoEmissions, urls)
}

func (consumer *recordingConsumer) lastImages() []string {
	if len(consumer.imageEmissions) == 0 {
		return nil
	}
	return consumer.imageEmissions[len(consumer.imageEmissions)-1]
}

func newCollectionWithConsumer(config collection.Config) (*collection.Collection, *recordingConsumer) {
	target := collection.New(config)
	consumer := &recordingConsumer{}
	target.SetConsumer(consumer)
	return target, consumer
}

func Test_Collection_UploadedPrecedePasted(t *testing.T) {
	target, _ := newCollectionWithConsumer(collection.Config{})

	// Pasted first, then uploads: uploads still come first in the
	// combined sequence
	target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/p1.jpg"})
	target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/p2.jpg"})
	target.Apply(collection.UploadSettled{Kind: media.Image, URLs: []string{"https://cdn.example.com/u1.jpg", "https://cdn.example.com/u2.jpg"}})

	assert.Equal(t, []string{
		"https://cdn.example.com/u1.jpg",
		"https://cdn.example.com/u2.jpg",
		"https://example.com/p1.jpg",
		"https://example.com/p2.jpg",
	}, target.URLs(media.Image))
}

func Test_Collection_DuplicatesSuppressedSilently(t *testing.T) {
	target, consumer := newCollectionWithConsumer(collection.Config{})

	rejections := target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/a.jpg"})
	assert.Empty(t, rejections)

	// Same URL again: no rejection, no growth
	rejections = target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/a.jpg"})
	assert.Empty(t, rejections)
	assert.Equal(t, []string{"https://example.com/a.jpg"}, target.URLs(media.Image))

	// A URL uploaded AND pasted is admitted once
	target.Apply(collection.UploadSettled{Kind: media.Image, URLs: []string{"https://example.com/a.jpg", "https://cdn.example.com/b.jpg"}})
	assert.Equal(t, []string{"https://cdn.example.com/b.jpg", "https://example.com/a.jpg"}, target.URLs(media.Image))

	assert.Equal(t, []string{"https://cdn.example.com/b.jpg", "https://example.com/a.jpg"}, consumer.lastImages())
}

func Test_Collection_CapacityCeiling(t *testing.T) {
	target, _ := newCollectionWithConsumer(collection.Config{MaxImages: 3})

	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://cdn.example.com/photo-%d.jpg", i)
	}

	rejections := target.Apply(collection.UploadSettled{Kind: media.Image, URLs: urls})

	// One aggregated capacity rejection for the overflow, not one per URL
	assert.Len(t, rejections, 1)
	assert.Equal(t, collection.CapacityExceeded, rejections[0].Reason)
	assert.Equal(t, urls[3:], rejections[0].URLs)

	// Admitted entries were never evicted to make room
	assert.Equal(t, urls[:3], target.URLs(media.Image))
}

func Test_Collection_VideoCeilingIndependentOfImages(t *testing.T) {
	target, _ := newCollectionWithConsumer(collection.Config{MaxImages: 10, MaxVideos: 1})

	target.Apply(collection.URLAdded{Kind: media.Video, URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	rejections := target.Apply(collection.URLAdded{Kind: media.Video, URL: "https://vimeo.com/123456789"})
	assert.Len(t, rejections, 1)
	assert.Equal(t, media.Video, rejections[0].Kind)

	// Image capacity unaffected
	rejections = target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/a.jpg"})
	assert.Empty(t, rejections)
}

func Test_Collection_RemovalRoutesCombinedIndex(t *testing.T) {
	target, _ := newCollectionWithConsumer(collection.Config{})

	target.Apply(collection.UploadSettled{Kind: media.Image, URLs: []string{"https://cdn.example.com/u1.jpg", "https://cdn.example.com/u2.jpg"}})
	target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/p1.jpg"})
	target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/p2.jpg"})

	// Index 1 falls in the uploaded sub-list
	target.Apply(collection.ItemRemoved{Kind: media.Image, Index: 1})
	assert.Equal(t, []string{
		"https://cdn.example.com/u1.jpg",
		"https://example.com/p1.jpg",
		"https://example.com/p2.jpg",
	}, target.URLs(media.Image))

	// Index 1 now falls in the pasted sub-list
	target.Apply(collection.ItemRemoved{Kind: media.Image, Index: 1})
	assert.Equal(t, []string{
		"https://cdn.example.com/u1.jpg",
		"https://example.com/p2.jpg",
	}, target.URLs(media.Image))

	// Out of range removal is a no-op
	target.Apply(collection.ItemRemoved{Kind: media.Image, Index: 99})
	assert.Len(t, target.URLs(media.Image), 2)
}

func Test_Collection_OneEmissionPerMutation(t *testing.T) {
	target, consumer := newCollectionWithConsumer(collection.Config{})

	// A settled batch of three files is one logical mutation
	target.Apply(collection.UploadSettled{Kind: media.Image, URLs: []string{
		"https://cdn.example.com/u1.jpg",
		"https://cdn.example.com/u2.jpg",
		"https://cdn.example.com/u3.jpg",
	}})
	assert.Len(t, consumer.imageEmissions, 1)
	assert.Empty(t, consumer.videoEmissions)

	target.Apply(collection.URLAdded{Kind: media.Video, URL: "https://vimeo.com/123456789"})
	assert.Len(t, consumer.imageEmissions, 1)
	assert.Len(t, consumer.videoEmissions, 1)

	target.Apply(collection.ItemRemoved{Kind: media.Image, Index: 0})
	assert.Len(t, consumer.imageEmissions, 2)
	assert.Len(t, consumer.videoEmissions, 1)
}

func Test_Collection_HydrateSeedsAndEmitsOnce(t *testing.T) {
	target, consumer := newCollectionWithConsumer(collection.Config{})

	ok := target.Hydrate(
		[]string{"https://cdn.example.com/saved1.jpg", "https://cdn.example.com/saved2.jpg"},
		[]string{"https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
	)
	assert.True(t, ok)
	assert.Len(t, consumer.imageEmissions, 1)
	assert.Len(t, consumer.videoEmissions, 1)

	// Hydrating again is rejected
	assert.False(t, target.Hydrate([]string{"https://cdn.example.com/other.jpg"}, nil))
	assert.Len(t, consumer.imageEmissions, 1)

	// Hydrated items keep their position ahead of later additions of
	// either provenance
	target.Apply(collection.UploadSettled{Kind: media.Image, URLs: []string{"https://cdn.example.com/new.jpg"}})
	target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/pasted.jpg"})
	assert.Equal(t, []string{
		"https://cdn.example.com/saved1.jpg",
		"https://cdn.example.com/saved2.jpg",
		"https://cdn.example.com/new.jpg",
		"https://example.com/pasted.jpg",
	}, target.URLs(media.Image))
}

func Test_Collection_InterleavedFollowsAdmissionOrder(t *testing.T) {
	target, _ := newCollectionWithConsumer(collection.Config{})

	target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/a.jpg"})
	target.Apply(collection.URLAdded{Kind: media.Video, URL: "https://vimeo.com/123456789"})
	target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/b.jpg"})

	interleaved := target.Interleaved()
	urls := make([]string, len(interleaved))
	for k, item := range interleaved {
		urls[k] = item.URL
	}

	assert.Equal(t, []string{
		"https://example.com/a.jpg",
		"https://vimeo.com/123456789",
		"https://example.com/b.jpg",
	}, urls)
}

func Test_Collection_ItemsCarryThumbnails(t *testing.T) {
	target, _ := newCollectionWithConsumer(collection.Config{})

	target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/a.jpg"})
	target.Apply(collection.URLAdded{Kind: media.Video, URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ"})
	target.Apply(collection.URLAdded{Kind: media.Video, URL: "https://vimeo.com/123456789"})

	images := target.Items(media.Image)
	assert.Equal(t, "https://example.com/a.jpg", images[0].Thumbnail)

	videos := target.Items(media.Video)
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", videos[0].Thumbnail)
	assert.Equal(t, media.PlaceholderThumbnailURL, videos[1].Thumbnail)
}

func Test_Collection_ClosedCollectionDiscardsLateResults(t *testing.T) {
	target, consumer := newCollectionWithConsumer(collection.Config{})

	target.Apply(collection.URLAdded{Kind: media.Image, URL: "https://example.com/a.jpg"})
	target.Close()

	// An in-flight upload settling after close is silently dropped
	rejections := target.Apply(collection.UploadSettled{Kind: media.Image, URLs: []string{"https://cdn.example.com/late.jpg"}})
	assert.Empty(t, rejections)
	assert.Len(t, consumer.imageEmissions, 1)
	assert.Equal(t, []string{"https://example.com/a.jpg"}, target.URLs(media.Image))
}
