package media

import (
	"io"
)

type (
	// Kind partitions resolved media in to the two sequences a listing
	// carries; every resolved item is exactly one of these.
	Kind string

	// Provenance records whether an item entered its collection via a
	// file upload or a pasted URL. It decides relative ordering within
	// a kind (uploaded items precede pasted items) and nothing else.
	Provenance string

	// Item is the unit of stored and displayed media. The URL is always
	// an absolute HTTPS reference once an item has been resolved; local
	// files never survive in to persisted state.
	Item struct {
		URL        string     `json:"url"`
		Kind       Kind       `json:"type"`
		Thumbnail  string     `json:"thumbnail,omitempty"`
		Provenance Provenance `json:"provenance"`
	}

	// LocalFile is a pre-resolution reference to a file supplied by the
	// user (a multipart upload, or a file found in the ingest directory).
	// Open returns a fresh reader over the file contents; it may be
	// called multiple times (content sniffing and the upload transport
	// each need a read).
	LocalFile struct {
		Name     string
		MIMEType string
		Size     int64
		Open     func() (io.ReadCloser, error)
	}

	// PastedURL is a pre-resolution reference to a string the user
	// pasted in to the form.
	PastedURL struct {
		Raw string
	}

	// Config holds the tunables for classification. The trusted image
	// hosts are a whitelist of convenience, not a stable contract: a URL
	// on one of these hosts is accepted as an image even when its path
	// carries no recognisable extension.
	Config struct {
		TrustedImageHosts []string `yaml:"trusted_image_hosts" env:"MEDIA_TRUSTED_IMAGE_HOSTS"`
	}
)

const (
	Image Kind = "image"
	Video Kind = "video"

	Uploaded Provenance = "uploaded"
	Pasted   Provenance = "pasted"
)

// DefaultTrustedImageHosts is used when the config supplies no
// whitelist of its own.
var DefaultTrustedImageHosts = []string{"res.cloudinary.com", "images.unsplash.com"}

func (config *Config) trustedImageHosts() []string {
	if len(config.TrustedImageHosts) == 0 {
		return DefaultTrustedImageHosts
	}

	return config.TrustedImageHosts
}
