package media

import "fmt"

// PlaceholderThumbnailURL is the still shown for every video we cannot
// derive a provider thumbnail for. True Vimeo thumbnails require an
// authenticated API call, so Vimeo items use the placeholder too.
const PlaceholderThumbnailURL = "https://res.cloudinary.com/abode/image/upload/v1/static/video-placeholder.jpg"

const youtubeThumbnailTemplate = "https://img.youtube.com/vi/%s/maxresdefault.jpg"

// Thumbnail derives a displayable still-image URL for the item
// provided. Image items are their own thumbnail. Video items resolve
// through the provider thumbnail endpoint where one exists (YouTube),
// and fall back to the fixed placeholder everywhere else - including on
// any id-extraction failure. This function never fails.
func Thumbnail(item Item) string {
	if item.Kind == Image {
		return item.URL
	}

	return VideoThumbnail(item.URL)
}

// VideoThumbnail resolves a preview image for a video URL that has
// already been normalized.
func VideoThumbnail(canonicalURL string) string {
	if id, ok := YouTubeVideoID(canonicalURL); ok {
		return fmt.Sprintf(youtubeThumbnailTemplate, id)
	}

	return PlaceholderThumbnailURL
}
