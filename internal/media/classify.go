package media

import (
	"net/url"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/hbomb79/Abode/pkg/logger"
)

var log = logger.Get("Media")

type (
	ReferenceTag int

	// RejectionReason is the machine-readable reason code attached to a
	// REJECTED classification.
	RejectionReason string

	Provider int

	// Classification is the result of inspecting one raw reference. The
	// Reason field is only populated when Tag is REJECTED, and Provider
	// only when Tag is PLATFORM_VIDEO_URL.
	Classification struct {
		Tag      ReferenceTag
		Reason   RejectionReason
		Provider Provider
	}

	// Classifier assigns exactly one tag to each raw input it is given.
	// It is synchronous and performs no network IO; the only reads it
	// issues are a content sniff of local files missing a usable
	// declared MIME type.
	Classifier struct {
		config Config
	}
)

const (
	IMAGE_FILE ReferenceTag = iota
	VIDEO_FILE
	IMAGE_URL
	DIRECT_VIDEO_URL
	PLATFORM_VIDEO_URL
	REJECTED
)

const (
	UNSUPPORTED_FORMAT RejectionReason = "unsupported-format"
	MALFORMED_URL      RejectionReason = "malformed-url"
	UNRECOGNIZED_URL   RejectionReason = "unrecognized-url"
)

const (
	NO_PROVIDER Provider = iota
	YOUTUBE
	VIMEO
	DAILYMOTION
	TWITCH
)

// Still-image formats we accept for upload. HEIC/HEIF and the common
// camera RAW containers are included; the upload transport requests a
// JPEG conversion for the formats browsers cannot render.
var imageFileExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".bmp": true, ".tiff": true, ".tif": true, ".heic": true, ".heif": true,
	".raw": true, ".arw": true, ".cr2": true, ".cr3": true, ".nef": true,
	".orf": true, ".raf": true, ".rw2": true, ".dng": true,
}

// Video container extensions recognised on a pasted URL path.
var videoURLExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".ogg": true, ".avi": true,
	".wmv": true, ".m4v": true, ".3gp": true, ".flv": true,
}

// Still-image extensions recognised on a pasted URL path. Deliberately
// narrower than the file set: RAW assets are not displayable and so a
// remote RAW reference is not an image the form can use.
var imageURLExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true,
	".bmp": true, ".svg": true, ".avif": true,
}

func NewClassifier(config Config) *Classifier {
	return &Classifier{config: config}
}

// ClassifyFile tags a local file as IMAGE_FILE or VIDEO_FILE, or
// REJECTED with reason 'unsupported-format'. The declared MIME type is
// consulted first; when it is absent or unhelpful the file extension is
// checked, and finally the content itself is sniffed.
func (classifier *Classifier) ClassifyFile(file LocalFile) Classification {
	declared := strings.ToLower(strings.TrimSpace(file.MIMEType))
	ext := strings.ToLower(path.Ext(file.Name))

	if strings.HasPrefix(declared, "image/") || imageFileExtensions[ext] {
		return Classification{Tag: IMAGE_FILE}
	}

	if strings.HasPrefix(declared, "video/") {
		return Classification{Tag: VIDEO_FILE}
	}

	if sniffed := classifier.sniffMIMEType(file); sniffed != "" {
		if strings.HasPrefix(sniffed, "image/") {
			return Classification{Tag: IMAGE_FILE}
		} else if strings.HasPrefix(sniffed, "video/") {
			return Classification{Tag: VIDEO_FILE}
		}
	}

	return Classification{Tag: REJECTED, Reason: UNSUPPORTED_FORMAT}
}

// ClassifyURL tags a pasted string as a platform video, a direct video,
// or an image reference - or rejects it. Rules are applied in priority
// order: provider patterns first, then video extensions, then image
// extensions and the trusted host whitelist.
func (classifier *Classifier) ClassifyURL(raw string) Classification {
	parsed, ok := parseReferenceURL(raw)
	if !ok {
		return Classification{Tag: REJECTED, Reason: MALFORMED_URL}
	}

	if provider := matchPlatformProvider(parsed); provider != NO_PROVIDER {
		return Classification{Tag: PLATFORM_VIDEO_URL, Provider: provider}
	}

	urlExt := strings.ToLower(path.Ext(parsed.Path))
	if videoURLExtensions[urlExt] || isStorageVideoAssetPath(parsed.Path) {
		return Classification{Tag: DIRECT_VIDEO_URL}
	}

	if imageURLExtensions[urlExt] || classifier.isTrustedImageHost(parsed.Host) {
		return Classification{Tag: IMAGE_URL}
	}

	return Classification{Tag: REJECTED, Reason: UNRECOGNIZED_URL}
}

// Classify dispatches on the reference variant. A LocalFile can never
// classify as a URL tag, and vice versa.
func (classifier *Classifier) Classify(reference any) Classification {
	switch ref := reference.(type) {
	case LocalFile:
		return classifier.ClassifyFile(ref)
	case PastedURL:
		return classifier.ClassifyURL(ref.Raw)
	default:
		log.Emit(logger.WARNING, "Classify called with unknown reference variant %T\n", reference)
		return Classification{Tag: REJECTED, Reason: UNSUPPORTED_FORMAT}
	}
}

// sniffMIMEType reads the leading bytes of the file to detect its
// content type. Failure to open or read the file is not fatal to
// classification - the caller falls through to rejection.
func (classifier *Classifier) sniffMIMEType(file LocalFile) string {
	if file.Open == nil {
		return ""
	}

	reader, err := file.Open()
	if err != nil {
		log.Emit(logger.DEBUG, "Cannot sniff content of %s: %v\n", file.Name, err)
		return ""
	}
	defer reader.Close()

	detected, err := mimetype.DetectReader(reader)
	if err != nil {
		log.Emit(logger.DEBUG, "Content sniff of %s failed: %v\n", file.Name, err)
		return ""
	}

	return detected.String()
}

func (classifier *Classifier) isTrustedImageHost(host string) bool {
	host = strings.ToLower(host)
	for _, trusted := range classifier.config.trustedImageHosts() {
		if host == trusted {
			return true
		}
	}

	return false
}

// parseReferenceURL parses a pasted string leniently: a missing scheme
// is tolerated (the normalizer will prepend one) but the result must
// have a host and must not contain whitespace.
func parseReferenceURL(raw string) (*url.URL, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || strings.ContainsAny(trimmed, " \t\n") {
		return nil, false
	}

	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" || !strings.Contains(parsed.Host, ".") {
		return nil, false
	}

	return parsed, true
}

// matchPlatformProvider checks the host/path of a parsed URL against
// the fixed set of hosting-provider patterns.
func matchPlatformProvider(parsed *url.URL) Provider {
	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	segments := pathSegments(parsed.Path)

	switch host {
	case "youtube.com", "m.youtube.com":
		if parsed.Path == "/watch" && parsed.Query().Get("v") != "" {
			return YOUTUBE
		}
		if len(segments) >= 2 && segments[0] == "shorts" {
			return YOUTUBE
		}
	case "youtu.be":
		if len(segments) >= 1 {
			return YOUTUBE
		}
	case "vimeo.com":
		if len(segments) >= 1 && isDigits(segments[0]) {
			return VIMEO
		}
	case "player.vimeo.com":
		if len(segments) >= 2 && segments[0] == "video" && isDigits(segments[1]) {
			return VIMEO
		}
	case "dailymotion.com":
		if len(segments) >= 2 && segments[0] == "video" {
			return DAILYMOTION
		}
	case "dai.ly":
		if len(segments) >= 1 {
			return DAILYMOTION
		}
	case "twitch.tv":
		if len(segments) >= 2 && segments[0] == "videos" && isDigits(segments[1]) {
			return TWITCH
		}
	}

	return NO_PROVIDER
}

// isStorageVideoAssetPath recognises the storage provider's video asset
// URLs, which carry no container extension but always contain the
// video delivery segment.
func isStorageVideoAssetPath(urlPath string) bool {
	return strings.Contains(urlPath, "/video/upload/")
}

func pathSegments(urlPath string) []string {
	trimmed := strings.Trim(urlPath, "/")
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, "/")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

func (tag ReferenceTag) String() string {
	switch tag {
	case IMAGE_FILE:
		return "image-file"
	case VIDEO_FILE:
		return "video-file"
	case IMAGE_URL:
		return "image-url"
	case DIRECT_VIDEO_URL:
		return "direct-video-url"
	case PLATFORM_VIDEO_URL:
		return "platform-video-url"
	case REJECTED:
		return "rejected"
	default:
		return "unknown"
	}
}

// Kind maps a classification tag on to the media kind its resolved item
// will carry. Rejected references have no kind.
func (tag ReferenceTag) Kind() (Kind, bool) {
	switch tag {
	case IMAGE_FILE, IMAGE_URL:
		return Image, true
	case VIDEO_FILE, DIRECT_VIDEO_URL, PLATFORM_VIDEO_URL:
		return Video, true
	default:
		return "", false
	}
}
