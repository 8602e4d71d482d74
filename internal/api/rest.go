package api

import (
	"context"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hbomb79/Abode/internal/api/ingests"
	"github.com/hbomb79/Abode/internal/api/listings"
	"github.com/hbomb79/Abode/internal/api/medias"
	"github.com/hbomb79/Abode/internal/event"
	"github.com/hbomb79/Abode/internal/http/websocket"
	"github.com/hbomb79/Abode/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin-wrapper around the Echo HTTP router. Its sole
	// responsibility is to create the routes Abode exposes, manage ongoing web
	// socket connections, and push update events out to connected clients.
	RestGateway struct {
		*broadcaster
		config            *RestConfig
		ec                *echo.Echo
		socket            *websocket.SocketHub
		ingestController  controller
		listingController controller
		mediaController   controller
	}
)

// NewRestGateway constructs the Echo router and populates it with all the
// routes defined by the various controllers. Each controller declares the
// service surface it needs, which are provided as arguments.
func NewRestGateway(
	config *RestConfig,
	eventBus event.EventCoordinator,
	ingestService ingests.IngestService,
	listingService listings.ListingService,
	collections medias.CollectionService,
	classifier medias.Classifier,
	uploader medias.Uploader,
) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	validate := validator.New()
	socket := websocket.New()
	gateway := &RestGateway{
		broadcaster:       newBroadcaster(socket, ingestService, collections, listingService),
		config:            config,
		ec:                ec,
		socket:            socket,
		ingestController:  ingests.New(validate, ingestService),
		listingController: listings.New(validate, listingService),
		mediaController:   medias.New(validate, eventBus, collections, classifier, uploader),
	}

	gateway.broadcaster.RegisterEventHandlers(eventBus)
	socket.WithConnectionCallback(func() map[string]interface{} {
		items := ingestService.GetAllIngests()
		dtos := make([]*ingests.IngestDto, len(items))
		for k, v := range items {
			dtos[k] = ingests.NewDto(v)
		}

		return map[string]interface{}{"ingests": dtos}
	})

	ec.Use(middleware.Logger())
	ec.Use(middleware.Recover())
	ec.Pre(middleware.AddTrailingSlash())

	ec.GET("/api/abode/v1/activity/ws/", func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})

	ingestGroup := ec.Group("/api/abode/v1/ingests")
	gateway.ingestController.SetRoutes(ingestGroup)

	listingGroup := ec.Group("/api/abode/v1/listings")
	gateway.listingController.SetRoutes(listingGroup)

	mediaGroup := ec.Group("/api/abode/v1/media")
	gateway.mediaController.SetRoutes(mediaGroup)

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	// Start websocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}
