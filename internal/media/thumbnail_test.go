package media_test

import (
	"testing"

	"github.com/hbomb79/Abode/internal/media"
	"github.com/stretchr/testify/assert"
)

func Test_Thumbnail_ImagesAreTheirOwnThumbnail(t *testing.T) {
	item := media.Item{URL: "https://example.com/kitchen.jpg", Kind: media.Image}
	assert.Equal(t, item.URL, media.Thumbnail(item))
}

func Test_Thumbnail_YouTubeVideosResolveProviderStill(t *testing.T) {
	item := media.Item{URL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Kind: media.Video}
	assert.Equal(t, "https://img.youtube.com/vi/dQw4w9WgXcQ/maxresdefault.jpg", media.Thumbnail(item))
}

func Test_Thumbnail_OtherVideosFallBackToPlaceholder(t *testing.T) {
	for _, url := range []string{
		"https://vimeo.com/123456789",
		"https://cdn.example.com/tour.mp4",
		"https://res.cloudinary.com/abode/video/upload/v1/walkthrough",
	} {
		item := media.Item{URL: url, Kind: media.Video}
		assert.Equalf(t, media.PlaceholderThumbnailURL, media.Thumbnail(item), "Thumbnail(%q)", url)
	}
}
