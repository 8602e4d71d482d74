package media

import (
	"net/url"
	"regexp"
	"strings"
)

// youtubeIDPattern matches the 11 character video identifier YouTube
// embeds in every URL spelling.
var youtubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// Normalize rewrites an accepted URL in to the single canonical form
// chosen for its provider family, so that equivalent input spellings
// always compare equal. It is idempotent: normalizing an already
// canonical URL is a no-op, which the collection deduplication relies on.
//
// YouTube URLs (watch, shorts, short-link, mobile) are rewritten to
// the canonical watch form; bare vimeo.com/{id} URLs to
// https://vimeo.com/{id} (player embeds are left alone). Everything
// else passes through untouched apart from scheme normalization.
func Normalize(raw string) string {
	normalized := ensureScheme(strings.TrimSpace(raw))

	if id, ok := YouTubeVideoID(normalized); ok {
		return "https://www.youtube.com/watch?v=" + id
	}

	if id, ok := bareVimeoID(normalized); ok {
		return "https://vimeo.com/" + id
	}

	return normalized
}

// ensureScheme guarantees an https scheme prefix: a missing scheme is
// prepended and a plain-text scheme upgraded, so that no insecure or
// scheme-less reference survives normalization.
func ensureScheme(raw string) string {
	if strings.HasPrefix(raw, "https://") {
		return raw
	}
	if strings.HasPrefix(raw, "http://") {
		return "https://" + strings.TrimPrefix(raw, "http://")
	}
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	if !strings.Contains(raw, "://") {
		return "https://" + raw
	}

	return raw
}

// YouTubeVideoID extracts the 11 character video id from any of the
// YouTube URL spellings (watch?v=, youtu.be/, shorts/, m.youtube.com).
// The boolean return is false when the URL is not a YouTube video
// reference, or when the embedded id is malformed.
func YouTubeVideoID(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	var id string
	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	segments := pathSegments(parsed.Path)
	switch host {
	case "youtube.com", "m.youtube.com":
		if parsed.Path == "/watch" {
			id = parsed.Query().Get("v")
		} else if len(segments) >= 2 && segments[0] == "shorts" {
			id = segments[1]
		}
	case "youtu.be":
		if len(segments) >= 1 {
			id = segments[0]
		}
	}

	if !youtubeIDPattern.MatchString(id) {
		return "", false
	}

	return id, true
}

// bareVimeoID extracts the numeric id from a canonical-form
// vimeo.com/{id} URL. Player embeds (player.vimeo.com/video/{id}) are
// deliberately excluded - they pass through normalization as-is.
func bareVimeoID(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}

	host := strings.ToLower(strings.TrimPrefix(parsed.Host, "www."))
	if host != "vimeo.com" {
		return "", false
	}

	segments := pathSegments(parsed.Path)
	if len(segments) != 1 || !isDigits(segments[0]) {
		return "", false
	}

	return segments[0], true
}
