package ingest

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hbomb79/Abode/internal/upload"
	"github.com/mitchellh/mapstructure"
)

type (
	TroubleType int

	// Trouble wraps the error that stalled an ingestion with the
	// information needed to resolve it: its type, and the resolutions
	// that type permits.
	Trouble struct {
		error
		tType TroubleType
	}

	ResolutionType int

	RetryResolution   struct{}
	AbortResolution   struct{}
	ListingResolution struct{ listingID uuid.UUID }

	// listingResolutionContext is the shape we decode the free-form
	// resolution context in to when the method is ASSIGN_LISTING.
	listingResolutionContext struct {
		ListingID string `mapstructure:"listing_id"`
	}
)

const (
	UNSUPPORTED_MEDIA TroubleType = iota
	UNKNOWN_LISTING
	UPLOAD_AUTH_FAILURE
	UPLOAD_REJECTED
	UPLOAD_TRANSPORT_FAILURE
	COLLECTION_FULL
	GENERIC_FAILURE

	RETRY ResolutionType = iota
	ABORT
	ASSIGN_LISTING
)

var allowedResolutionTypes = map[TroubleType][]ResolutionType{
	UNSUPPORTED_MEDIA:        {ABORT},
	UNKNOWN_LISTING:          {ABORT, ASSIGN_LISTING},
	UPLOAD_AUTH_FAILURE:      {ABORT, RETRY},
	UPLOAD_REJECTED:          {ABORT},
	UPLOAD_TRANSPORT_FAILURE: {ABORT, RETRY},
	COLLECTION_FULL:          {ABORT, RETRY},
	GENERIC_FAILURE:          {ABORT, RETRY},
}

// newTrouble classifies the error an ingestion failed with in to the
// trouble type that decides which resolutions a user may apply.
func newTrouble(err error) Trouble {
	switch err.(type) {
	case *upload.AuthFailedError:
		return Trouble{error: err, tType: UPLOAD_AUTH_FAILURE}
	case *upload.RequestRejectedError, *upload.FileTooLargeError, *upload.EmptyFileError:
		return Trouble{error: err, tType: UPLOAD_REJECTED}
	case *upload.RequestFailedError:
		return Trouble{error: err, tType: UPLOAD_TRANSPORT_FAILURE}
	}

	return Trouble{error: err, tType: GENERIC_FAILURE}
}

func (t *Trouble) Type() TroubleType { return t.tType }

func (t *Trouble) AllowedResolutionTypes() []ResolutionType {
	if allowed, ok := allowedResolutionTypes[t.tType]; ok {
		return allowed
	}

	return []ResolutionType{}
}

func (t *Trouble) isResolutionTypeAllowed(resType ResolutionType) bool {
	for _, v := range t.AllowedResolutionTypes() {
		if v == resType {
			return true
		}
	}

	return false
}

// GenerateResolution validates the method and context provided against
// this trouble and returns the concrete resolution to apply.
func (t *Trouble) GenerateResolution(method ResolutionType, context map[string]string) (interface{}, error) {
	if !t.isResolutionTypeAllowed(method) {
		return nil, ErrResolutionIncompatible
	}

	switch method {
	case ABORT:
		return &AbortResolution{}, nil
	case RETRY:
		return &RetryResolution{}, nil
	case ASSIGN_LISTING:
		var decoded listingResolutionContext
		if err := mapstructure.Decode(context, &decoded); err != nil || decoded.ListingID == "" {
			return nil, ErrResolutionIncomplete
		}

		listingID, err := uuid.Parse(decoded.ListingID)
		if err != nil {
			return nil, ErrResolutionIncomplete
		}

		return &ListingResolution{listingID: listingID}, nil
	default:
		return nil, ErrResolutionIncompatible
	}
}

func (t TroubleType) String() string {
	switch t {
	case UNSUPPORTED_MEDIA:
		return fmt.Sprintf("UNSUPPORTED_MEDIA[%d]", t)
	case UNKNOWN_LISTING:
		return fmt.Sprintf("UNKNOWN_LISTING[%d]", t)
	case UPLOAD_AUTH_FAILURE:
		return fmt.Sprintf("UPLOAD_AUTH_FAILURE[%d]", t)
	case UPLOAD_REJECTED:
		return fmt.Sprintf("UPLOAD_REJECTED[%d]", t)
	case UPLOAD_TRANSPORT_FAILURE:
		return fmt.Sprintf("UPLOAD_TRANSPORT_FAILURE[%d]", t)
	case COLLECTION_FULL:
		return fmt.Sprintf("COLLECTION_FULL[%d]", t)
	default:
		return fmt.Sprintf("GENERIC_FAILURE[%d]", t)
	}
}
