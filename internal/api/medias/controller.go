package medias

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/Abode/internal/event"
	"github.com/hbomb79/Abode/internal/media"
	"github.com/hbomb79/Abode/internal/media/collection"
	"github.com/hbomb79/Abode/internal/upload"
	"github.com/labstack/echo/v4"
)

type (
	// CollectionService provides access to the live media collection of
	// a listing, hydrating it from persistence if required.
	CollectionService interface {
		Collection(listingID uuid.UUID) (*collection.Collection, error)
	}

	Classifier interface {
		ClassifyURL(raw string) media.Classification
		ClassifyFile(file media.LocalFile) media.Classification
	}

	Uploader interface {
		UploadBatch(ctx context.Context, files []media.LocalFile, kind media.Kind) upload.Outcome
	}

	// CollectionDto is the response used by endpoints returning the
	// media collection of a listing. Items carry their resolved
	// thumbnails; the interleaved list is the carousel display order.
	CollectionDto struct {
		ListingID   uuid.UUID    `json:"listing_id"`
		Images      []media.Item `json:"images"`
		Videos      []media.Item `json:"videos"`
		Interleaved []media.Item `json:"interleaved"`
	}

	AddUrlsRequest struct {
		Urls []string `json:"urls" validate:"required,min=1"`
	}

	// UrlOutcomeDto reports per-URL what the classifier and collection
	// decided. Accepted URLs are reported with their canonical form.
	UrlOutcomeDto struct {
		Url       string `json:"url"`
		Accepted  bool   `json:"accepted"`
		Canonical string `json:"canonical,omitempty"`
		Reason    string `json:"reason,omitempty"`
	}

	// FileOutcomeDto reports per-file what happened to an uploaded file.
	FileOutcomeDto struct {
		FileName string `json:"file_name"`
		Accepted bool   `json:"accepted"`
		Url      string `json:"url,omitempty"`
		Reason   string `json:"reason,omitempty"`
	}

	Controller struct {
		validate    *validator.Validate
		eventBus    event.EventDispatcher
		collections CollectionService
		classifier  Classifier
		uploader    Uploader
	}
)

func New(validate *validator.Validate, eventBus event.EventDispatcher, collections CollectionService, classifier Classifier, uploader Uploader) *Controller {
	return &Controller{validate: validate, eventBus: eventBus, collections: collections, classifier: classifier, uploader: uploader}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/:listingId/", controller.getCollection)
	eg.POST("/:listingId/urls/", controller.addUrls)
	eg.POST("/:listingId/uploads/", controller.uploadFiles)
	eg.DELETE("/:listingId/items/:kind/:index/", controller.removeItem)
}

// getCollection returns the current media collection for the listing,
// including in-flight state that has not yet been persisted.
func (controller *Controller) getCollection(ec echo.Context) error {
	target, err := controller.collectionFor(ec)
	if err != nil {
		return err
	}

	return ec.JSON(http.StatusOK, NewCollectionDto(mustListingID(ec), target))
}

// addUrls accepts a list of pasted URL strings and runs each through
// classification and normalization before offering it to the listings
// collection. The response reports the outcome of every URL in the
// order they were provided; a mix of accepted and rejected URLs is
// still a 200.
func (controller *Controller) addUrls(ec echo.Context) error {
	target, err := controller.collectionFor(ec)
	if err != nil {
		return err
	}

	var request AddUrlsRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("JSON body illegal: %v", err))
	}
	if err := controller.validate.Struct(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body requires a non-empty 'urls' list")
	}

	outcomes := make([]UrlOutcomeDto, len(request.Urls))
	for k, raw := range request.Urls {
		outcomes[k] = controller.admitURL(target, raw)
	}

	return ec.JSON(http.StatusOK, outcomes)
}

// uploadFiles accepts a multipart batch of media files under the
// 'files' field. Files are classified first; those recognised as images
// or videos are uploaded concurrently per kind and their canonical URLs
// offered to the listings collection. One file failing never aborts its
// siblings, but a batch where nothing succeeded is reported as an error.
func (controller *Controller) uploadFiles(ec echo.Context) error {
	target, err := controller.collectionFor(ec)
	if err != nil {
		return err
	}

	form, err := ec.MultipartForm()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("Multipart form illegal: %v", err))
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Multipart form requires at least one file under 'files'")
	}

	outcomes := make([]FileOutcomeDto, 0, len(headers))
	batches := map[media.Kind][]media.LocalFile{}
	for _, header := range headers {
		file := localFileFromHeader(header)
		classification := controller.classifier.ClassifyFile(file)
		kind, ok := classification.Tag.Kind()
		if !ok {
			outcomes = append(outcomes, FileOutcomeDto{FileName: file.Name, Accepted: false, Reason: string(classification.Reason)})
			continue
		}

		batches[kind] = append(batches[kind], file)
	}

	anySucceeded := false
	for kind, files := range batches {
		outcome := controller.uploader.UploadBatch(ec.Request().Context(), files, kind)
		for _, failed := range outcome.Failed {
			outcomes = append(outcomes, FileOutcomeDto{FileName: failed.FileName, Accepted: false, Reason: string(upload.KindOf(failed.Err))})
		}

		urls := outcome.SucceededURLs()
		if len(urls) == 0 {
			continue
		}
		anySucceeded = true

		rejections := target.Apply(collection.UploadSettled{Kind: kind, URLs: urls})
		rejected := rejectedURLSet(rejections)
		for _, settled := range outcome.Succeeded {
			if reason, ok := rejected[settled.URL]; ok {
				outcomes = append(outcomes, FileOutcomeDto{FileName: settled.FileName, Accepted: false, Url: settled.URL, Reason: reason})
			} else {
				outcomes = append(outcomes, FileOutcomeDto{FileName: settled.FileName, Accepted: true, Url: settled.URL})
			}
		}
	}

	if !anySucceeded && len(batches) > 0 {
		return ec.JSON(http.StatusBadGateway, outcomes)
	}

	if anySucceeded {
		controller.eventBus.Dispatch(event.UPLOAD_COMPLETE, mustListingID(ec))
	}

	return ec.JSON(http.StatusOK, outcomes)
}

// removeItem removes one item from the listings collection. The index
// is relative to the combined (uploaded then pasted) list for the kind,
// matching what getCollection returns.
func (controller *Controller) removeItem(ec echo.Context) error {
	target, err := controller.collectionFor(ec)
	if err != nil {
		return err
	}

	kind, ok := parseKind(ec.Param("kind"))
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "Media kind must be 'image' or 'video'")
	}

	index, err := strconv.Atoi(ec.Param("index"))
	if err != nil || index < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "Item index must be a non-negative integer")
	}

	if index >= len(target.Items(kind)) {
		return echo.NewHTTPError(http.StatusNotFound, "No item exists at the provided index")
	}

	target.Apply(collection.ItemRemoved{Kind: kind, Index: index})
	return ec.NoContent(http.StatusOK)
}

// admitURL classifies, normalizes and offers a single pasted URL to
// the collection, translating each failure mode to a DTO outcome.
func (controller *Controller) admitURL(target *collection.Collection, raw string) UrlOutcomeDto {
	classification := controller.classifier.ClassifyURL(raw)
	kind, ok := classification.Tag.Kind()
	if !ok {
		return UrlOutcomeDto{Url: raw, Accepted: false, Reason: string(classification.Reason)}
	}

	canonical := media.Normalize(raw)
	rejections := target.Apply(collection.URLAdded{Kind: kind, URL: canonical})
	if reason, found := rejectedURLSet(rejections)[canonical]; found {
		return UrlOutcomeDto{Url: raw, Accepted: false, Canonical: canonical, Reason: reason}
	}

	return UrlOutcomeDto{Url: raw, Accepted: true, Canonical: canonical}
}

func (controller *Controller) collectionFor(ec echo.Context) (*collection.Collection, error) {
	listingID, err := uuid.Parse(ec.Param("listingId"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "Listing ID is not a valid UUID")
	}

	target, err := controller.collections.Collection(listingID)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Listing %s not found: %v", listingID, err))
	}

	return target, nil
}

// NewCollectionDto creates a CollectionDto from the live collection.
func NewCollectionDto(listingID uuid.UUID, target *collection.Collection) CollectionDto {
	return CollectionDto{
		ListingID:   listingID,
		Images:      target.Items(media.Image),
		Videos:      target.Items(media.Video),
		Interleaved: target.Interleaved(),
	}
}

func localFileFromHeader(header *multipart.FileHeader) media.LocalFile {
	return media.LocalFile{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}

func rejectedURLSet(rejections []collection.Rejection) map[string]string {
	rejected := make(map[string]string)
	for _, rejection := range rejections {
		for _, url := range rejection.URLs {
			rejected[url] = string(rejection.Reason)
		}
	}

	return rejected
}

func parseKind(raw string) (media.Kind, bool) {
	switch raw {
	case "image":
		return media.Image, true
	case "video":
		return media.Video, true
	}

	return "", false
}

// mustListingID re-parses the listing ID path param after collectionFor
// has already validated it.
func mustListingID(ec echo.Context) uuid.UUID {
	id, _ := uuid.Parse(ec.Param("listingId"))
	return id
}
