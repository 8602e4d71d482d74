package media_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/hbomb79/Abode/internal/media"
	"github.com/stretchr/testify/assert"
)

type classifyURLTest struct {
	summary  string
	raw      string
	tag      media.ReferenceTag
	reason   media.RejectionReason
	provider media.Provider
}

func runClassifyURLTests(t *testing.T, classifier *media.Classifier, tests []classifyURLTest) {
	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			result := classifier.ClassifyURL(tt.raw)
			assert.Equalf(t, tt.tag, result.Tag, "ClassifyURL(%q) tag", tt.raw)
			if tt.tag == media.REJECTED {
				assert.Equalf(t, tt.reason, result.Reason, "ClassifyURL(%q) rejection reason", tt.raw)
			}
			if tt.tag == media.PLATFORM_VIDEO_URL {
				assert.Equalf(t, tt.provider, result.Provider, "ClassifyURL(%q) provider", tt.raw)
			}
		})
	}
}

func Test_Classifier_PlatformVideoURLs(t *testing.T) {
	classifier := media.NewClassifier(media.Config{})
	runClassifyURLTests(t, classifier, []classifyURLTest{
		{summary: "youtube watch", raw: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", tag: media.PLATFORM_VIDEO_URL, provider: media.YOUTUBE},
		{summary: "youtube short-link", raw: "https://youtu.be/dQw4w9WgXcQ", tag: media.PLATFORM_VIDEO_URL, provider: media.YOUTUBE},
		{summary: "youtube shorts", raw: "https://www.youtube.com/shorts/dQw4w9WgXcQ", tag: media.PLATFORM_VIDEO_URL, provider: media.YOUTUBE},
		{summary: "youtube mobile", raw: "https://m.youtube.com/watch?v=dQw4w9WgXcQ", tag: media.PLATFORM_VIDEO_URL, provider: media.YOUTUBE},
		{summary: "youtube schemeless", raw: "youtube.com/watch?v=dQw4w9WgXcQ", tag: media.PLATFORM_VIDEO_URL, provider: media.YOUTUBE},
		{summary: "vimeo", raw: "https://vimeo.com/123456789", tag: media.PLATFORM_VIDEO_URL, provider: media.VIMEO},
		{summary: "vimeo player embed", raw: "https://player.vimeo.com/video/123456789", tag: media.PLATFORM_VIDEO_URL, provider: media.VIMEO},
		{summary: "dailymotion", raw: "https://www.dailymotion.com/video/x7u5n3j", tag: media.PLATFORM_VIDEO_URL, provider: media.DAILYMOTION},
		{summary: "dailymotion short-link", raw: "https://dai.ly/x7u5n3j", tag: media.PLATFORM_VIDEO_URL, provider: media.DAILYMOTION},
		{summary: "twitch vod", raw: "https://www.twitch.tv/videos/123456789", tag: media.PLATFORM_VIDEO_URL, provider: media.TWITCH},
	})
}

func Test_Classifier_DirectAndImageURLs(t *testing.T) {
	classifier := media.NewClassifier(media.Config{})
	runClassifyURLTests(t, classifier, []classifyURLTest{
		{summary: "direct mp4", raw: "https://cdn.example.com/tour.mp4", tag: media.DIRECT_VIDEO_URL},
		{summary: "direct webm", raw: "https://cdn.example.com/walkthrough.webm", tag: media.DIRECT_VIDEO_URL},
		{summary: "storage video asset without extension", raw: "https://res.cloudinary.com/abode/video/upload/v123/property-tour", tag: media.DIRECT_VIDEO_URL},
		{summary: "image png", raw: "https://example.com/photos/kitchen.png", tag: media.IMAGE_URL},
		{summary: "image jpeg uppercase host", raw: "https://EXAMPLE.com/a.jpg", tag: media.IMAGE_URL},
		{summary: "trusted host without extension", raw: "https://images.unsplash.com/photo-1501183638710", tag: media.IMAGE_URL},
		{summary: "cloudinary image delivery", raw: "https://res.cloudinary.com/abode/image/upload/v1/listing/1", tag: media.IMAGE_URL},
	})
}

func Test_Classifier_RejectedURLs(t *testing.T) {
	classifier := media.NewClassifier(media.Config{})
	runClassifyURLTests(t, classifier, []classifyURLTest{
		{summary: "plain text", raw: "not a url", tag: media.REJECTED, reason: media.MALFORMED_URL},
		{summary: "empty", raw: "", tag: media.REJECTED, reason: media.MALFORMED_URL},
		{summary: "hostless", raw: "https:///path/only", tag: media.REJECTED, reason: media.MALFORMED_URL},
		{summary: "unrecognized host without extension", raw: "https://example.com/some/page", tag: media.REJECTED, reason: media.UNRECOGNIZED_URL},
		{summary: "vimeo profile page", raw: "https://vimeo.com/someuser", tag: media.REJECTED, reason: media.UNRECOGNIZED_URL},
	})
}

func Test_Classifier_CustomTrustedHosts(t *testing.T) {
	classifier := media.NewClassifier(media.Config{TrustedImageHosts: []string{"img.acme.test"}})

	result := classifier.ClassifyURL("https://img.acme.test/listing/42")
	assert.Equal(t, media.IMAGE_URL, result.Tag)

	// Providing hosts replaces the default whitelist entirely
	result = classifier.ClassifyURL("https://images.unsplash.com/photo-1501183638710")
	assert.Equal(t, media.REJECTED, result.Tag)
	assert.Equal(t, media.UNRECOGNIZED_URL, result.Reason)
}

func Test_Classifier_LocalFiles(t *testing.T) {
	classifier := media.NewClassifier(media.Config{})

	tests := []struct {
		summary string
		file    media.LocalFile
		tag     media.ReferenceTag
	}{
		{
			summary: "declared image mime",
			file:    media.LocalFile{Name: "kitchen.jpg", MIMEType: "image/jpeg"},
			tag:     media.IMAGE_FILE,
		},
		{
			summary: "declared video mime",
			file:    media.LocalFile{Name: "tour.mp4", MIMEType: "video/mp4"},
			tag:     media.VIDEO_FILE,
		},
		{
			summary: "heic by extension with generic mime",
			file:    media.LocalFile{Name: "IMG_0001.HEIC", MIMEType: "application/octet-stream"},
			tag:     media.IMAGE_FILE,
		},
		{
			summary: "camera raw by extension",
			file:    media.LocalFile{Name: "DSC_0042.NEF", MIMEType: ""},
			tag:     media.IMAGE_FILE,
		},
		{
			summary: "unsupported document",
			file:    media.LocalFile{Name: "floorplan.pdf", MIMEType: "application/pdf"},
			tag:     media.REJECTED,
		},
	}

	for _, tt := range tests {
		t.Run(tt.summary, func(t *testing.T) {
			result := classifier.ClassifyFile(tt.file)
			assert.Equalf(t, tt.tag, result.Tag, "ClassifyFile(%s)", tt.file.Name)
			if tt.tag == media.REJECTED {
				assert.Equal(t, media.UNSUPPORTED_FORMAT, result.Reason)
			}
		})
	}
}

func Test_Classifier_SniffsContentWhenDeclarationUnhelpful(t *testing.T) {
	classifier := media.NewClassifier(media.Config{})

	// PNG magic bytes with a name and MIME that say nothing useful
	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}
	file := media.LocalFile{
		Name:     "upload.bin",
		MIMEType: "application/octet-stream",
		Size:     int64(len(pngHeader)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(pngHeader)), nil
		},
	}

	result := classifier.ClassifyFile(file)
	assert.Equal(t, media.IMAGE_FILE, result.Tag)
}

func Test_ReferenceTag_Kind(t *testing.T) {
	for tag, wantKind := range map[media.ReferenceTag]media.Kind{
		media.IMAGE_FILE:         media.Image,
		media.IMAGE_URL:          media.Image,
		media.VIDEO_FILE:         media.Video,
		media.DIRECT_VIDEO_URL:   media.Video,
		media.PLATFORM_VIDEO_URL: media.Video,
	} {
		kind, ok := tag.Kind()
		assert.True(t, ok)
		assert.Equal(t, wantKind, kind)
	}

	_, ok := media.REJECTED.Kind()
	assert.False(t, ok)
}
