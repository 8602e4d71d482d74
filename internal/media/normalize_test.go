package media_test

import (
	"testing"

	"github.com/hbomb79/Abode/internal/media"
	"github.com/stretchr/testify/assert"
)

func Test_Normalize_YouTubeSpellingsConverge(t *testing.T) {
	const canonical = "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	spellings := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
		"https://m.youtube.com/watch?v=dQw4w9WgXcQ",
		"http://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"youtu.be/dQw4w9WgXcQ",
	}

	for _, raw := range spellings {
		assert.Equalf(t, canonical, media.Normalize(raw), "Normalize(%q)", raw)
	}
}

func Test_Normalize_Vimeo(t *testing.T) {
	assert.Equal(t, "https://vimeo.com/123456789", media.Normalize("https://www.vimeo.com/123456789"))
	assert.Equal(t, "https://vimeo.com/123456789", media.Normalize("vimeo.com/123456789"))

	// Player embeds are deliberately left in their embed form
	assert.Equal(t,
		"https://player.vimeo.com/video/123456789",
		media.Normalize("https://player.vimeo.com/video/123456789"))
}

func Test_Normalize_SchemeHandling(t *testing.T) {
	tests := []struct{ raw, want string }{
		{"http://example.com/a.jpg", "https://example.com/a.jpg"},
		{"example.com/a.jpg", "https://example.com/a.jpg"},
		{"//example.com/a.jpg", "https://example.com/a.jpg"},
		{"https://example.com/a.jpg", "https://example.com/a.jpg"},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, media.Normalize(tt.raw), "Normalize(%q)", tt.raw)
	}
}

// Normalizing an already canonical URL must be a no-op; collection
// deduplication relies on this.
func Test_Normalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://youtu.be/dQw4w9WgXcQ",
		"http://vimeo.com/123456789",
		"example.com/house.png",
		"https://cdn.example.com/tour.mp4",
		"https://res.cloudinary.com/abode/image/upload/v1/listing/1.jpg",
	}

	for _, raw := range inputs {
		once := media.Normalize(raw)
		assert.Equalf(t, once, media.Normalize(once), "Normalize not idempotent for %q", raw)
	}
}

func Test_YouTubeVideoID(t *testing.T) {
	id, ok := media.YouTubeVideoID("https://www.youtube.com/watch?v=dQw4w9WgXcQ")
	assert.True(t, ok)
	assert.Equal(t, "dQw4w9WgXcQ", id)

	_, ok = media.YouTubeVideoID("https://www.youtube.com/watch?v=tooshort")
	assert.False(t, ok)

	_, ok = media.YouTubeVideoID("https://vimeo.com/123456789")
	assert.False(t, ok)
}
