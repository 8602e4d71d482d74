package listings

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/Abode/internal/listing"
	"github.com/labstack/echo/v4"
)

type (
	CreateListingRequest struct {
		Title       string `json:"title" validate:"required,min=1"`
		Description string `json:"description"`
	}

	// ListingDto is the response shape for listing endpoints. Media URLs
	// here are the persisted collection only; the in-flight collection
	// is served by the medias controller.
	ListingDto struct {
		Id          uuid.UUID `json:"id"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		State       string    `json:"state"`
		Images      []string  `json:"images"`
		Videos      []string  `json:"videos"`
		CreatedAt   time.Time `json:"created_at"`
		UpdatedAt   time.Time `json:"updated_at"`
	}

	SubmitResponse struct {
		Notices []string `json:"notices"`
	}

	// ListingService is the surface this controller needs from the
	// listing orchestration layer. Submission runs media sanitization
	// before the state transition is persisted.
	ListingService interface {
		CreateListing(title string, description string) (*listing.Listing, error)
		GetListing(id uuid.UUID) (*listing.Listing, error)
		GetAllListings() ([]*listing.Listing, error)
		DeleteListing(id uuid.UUID) error
		SubmitListing(id uuid.UUID) (listing.SanitizedMedia, error)
	}

	Controller struct {
		validate *validator.Validate
		service  ListingService
	}
)

func New(validate *validator.Validate, service ListingService) *Controller {
	return &Controller{validate: validate, service: service}
}

func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.GET("/", controller.list)
	eg.POST("/", controller.create)
	eg.GET("/:id/", controller.get)
	eg.DELETE("/:id/", controller.delete)
	eg.POST("/:id/submit/", controller.submit)
}

func (controller *Controller) list(ec echo.Context) error {
	listings, err := controller.service.GetAllListings()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("Error occurred while listing listings: %v", err))
	}

	dtos := make([]ListingDto, len(listings))
	for k, v := range listings {
		dtos[k] = NewDto(v)
	}

	return ec.JSON(http.StatusOK, dtos)
}

func (controller *Controller) create(ec echo.Context) error {
	var request CreateListingRequest
	if err := ec.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("JSON body illegal: %v", err))
	}
	if err := controller.validate.Struct(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "JSON body requires a non-empty 'title'")
	}

	created, err := controller.service.CreateListing(request.Title, request.Description)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return ec.JSON(http.StatusCreated, NewDto(created))
}

func (controller *Controller) get(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Listing ID is not a valid UUID")
	}

	model, err := controller.service.GetListing(id)
	if err != nil {
		if errors.Is(err, listing.ErrListingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}

		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return ec.JSON(http.StatusOK, NewDto(model))
}

func (controller *Controller) delete(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Listing ID is not a valid UUID")
	}

	if err := controller.service.DeleteListing(id); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return ec.NoContent(http.StatusOK)
}

// submit transitions the listing to SUBMITTED, provided its sanitized
// media passes submission validation. Notices for any dropped URLs are
// returned even on success.
func (controller *Controller) submit(ec echo.Context) error {
	id, err := uuid.Parse(ec.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Listing ID is not a valid UUID")
	}

	sanitized, err := controller.service.SubmitListing(id)
	if err != nil {
		if errors.Is(err, listing.ErrListingNotFound) {
			return echo.NewHTTPError(http.StatusNotFound)
		}

		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	return ec.JSON(http.StatusOK, SubmitResponse{Notices: sanitized.Notices})
}

// NewDto creates a ListingDto using the Listing model.
func NewDto(model *listing.Listing) ListingDto {
	return ListingDto{
		Id:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		State:       string(model.State),
		Images:      model.Images,
		Videos:      model.Videos,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}
