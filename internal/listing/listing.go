package listing

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type (
	ListingState string

	// Listing is a property listing and the media attached to it. The
	// images and videos columns hold canonical HTTPS URLs in their
	// persisted display order; in-flight (unresolved) media never
	// reaches these columns.
	Listing struct {
		ID          uuid.UUID      `db:"id" json:"id"`
		Title       string         `db:"title" json:"title"`
		Description string         `db:"description" json:"description"`
		State       ListingState   `db:"state" json:"state"`
		Images      pq.StringArray `db:"images" json:"images"`
		Videos      pq.StringArray `db:"videos" json:"videos"`
		CreatedAt   time.Time      `db:"created_at" json:"created_at"`
		UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
	}
)

const (
	DRAFT     ListingState = "DRAFT"
	SUBMITTED ListingState = "SUBMITTED"
)
