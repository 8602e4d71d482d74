package listing_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/Abode/internal/listing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SanitizeMedia_DropsInsecureAndMalformedURLs(t *testing.T) {
	sanitized := listing.SanitizeMedia(
		[]string{
			"https://res.cloudinary.com/abode/image/upload/v1/a.jpg",
			"http://insecure.example.com/b.jpg",
			"not a url at all",
			"https://example.com/c.png",
		},
		[]string{
			"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			"ftp://example.com/tour.mp4",
		},
	)

	assert.Equal(t, []string{
		"https://res.cloudinary.com/abode/image/upload/v1/a.jpg",
		"https://example.com/c.png",
	}, sanitized.Images)
	assert.Equal(t, []string{"https://www.youtube.com/watch?v=dQw4w9WgXcQ"}, sanitized.Videos)

	// One notice per dropped URL
	assert.Len(t, sanitized.Notices, 3)
}

func Test_SanitizeMedia_CleanInputProducesNoNotices(t *testing.T) {
	sanitized := listing.SanitizeMedia(
		[]string{"https://example.com/a.jpg"},
		[]string{"https://vimeo.com/123456789"},
	)

	assert.Empty(t, sanitized.Notices)
	assert.Len(t, sanitized.Images, 1)
	assert.Len(t, sanitized.Videos, 1)
}

func Test_ValidateSubmission_RequiresAtLeastOneImage(t *testing.T) {
	validate := validator.New()

	model := &listing.Listing{
		ID:     uuid.New(),
		Title:  "Cosy cottage",
		Images: []string{"http://insecure.example.com/only.jpg"},
		Videos: []string{"https://vimeo.com/123456789"},
	}

	// The only image is dropped by sanitization, so submission fails
	_, err := listing.ValidateSubmission(validate, model)
	require.Error(t, err)

	model.Images = append(model.Images, "https://example.com/good.jpg")
	sanitized, err := listing.ValidateSubmission(validate, model)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/good.jpg"}, sanitized.Images)
	assert.Len(t, sanitized.Notices, 1)
}
