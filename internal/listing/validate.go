package listing

import (
	"fmt"
	"net/url"

	"github.com/go-playground/validator/v10"
)

type (
	// SanitizedMedia is the result of sanitizing a listings media ahead
	// of submission. Notices describe each URL that was dropped, keyed
	// by nothing more than a human-readable message; the caller decides
	// whether notices are surfaced or merely logged.
	SanitizedMedia struct {
		Images  []string `validate:"min=1"`
		Videos  []string
		Notices []string
	}
)

// SanitizeMedia filters a listings persisted media down to well-formed
// HTTPS URLs. Each dropped URL produces a notice; the listing itself is
// never rejected at this stage.
func SanitizeMedia(images []string, videos []string) SanitizedMedia {
	sanitized := SanitizedMedia{
		Images:  make([]string, 0, len(images)),
		Videos:  make([]string, 0, len(videos)),
		Notices: make([]string, 0),
	}

	for _, raw := range images {
		if reason, ok := checkURL(raw); !ok {
			sanitized.Notices = append(sanitized.Notices, fmt.Sprintf("image '%s' dropped: %s", raw, reason))
			continue
		}

		sanitized.Images = append(sanitized.Images, raw)
	}

	for _, raw := range videos {
		if reason, ok := checkURL(raw); !ok {
			sanitized.Notices = append(sanitized.Notices, fmt.Sprintf("video '%s' dropped: %s", raw, reason))
			continue
		}

		sanitized.Videos = append(sanitized.Videos, raw)
	}

	return sanitized
}

// ValidateSubmission sanitizes the listings media and asserts the
// result is acceptable for submission (at minimum one surviving image).
func ValidateSubmission(validate *validator.Validate, model *Listing) (SanitizedMedia, error) {
	sanitized := SanitizeMedia(model.Images, model.Videos)
	if err := validate.Struct(sanitized); err != nil {
		return sanitized, fmt.Errorf("listing %s is not submittable: at least one valid image is required", model.ID)
	}

	return sanitized, nil
}

func checkURL(raw string) (string, bool) {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return "malformed URL", false
	}

	if parsed.Scheme != "https" {
		return "scheme must be https", false
	}

	return "", true
}
