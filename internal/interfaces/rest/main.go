package rest

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sort"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echo_middleware "github.com/labstack/echo/v4/middleware"
	infra "github.com/pot-code/learning-path/internal/infrastructure"
	"github.com/pot-code/learning-path/internal/infrastructure/driver"
	"github.com/pot-code/learning-path/internal/interfaces/rest/handler"
	"github.com/pot-code/learning-path/internal/interfaces/rest/middleware"
	"github.com/pot-code/learning-path/internal/learningpath"
	"go.elastic.co/apm/module/apmechov4"
	"go.uber.org/zap"
)

const (
	apiVersion      = "api/v1"
	shutdownTimeout = 5 * time.Second
)

// NewApp create the echo application with all routes registered
func NewApp(
	kv driver.KeyValueDB,
	option *infra.AppConfig,
	LearningPathUseCase learningpath.LearningPathUseCase,
	logger *zap.Logger,
) *echo.Echo {
	var (
		app       = echo.New()
		websocket = infra.NewWebsocket(logger)
	)
	app.HideBanner = true
	app.HidePort = true

	registerLivenessProbe(app, kv)
	if option.Env == infra.EnvDevelopment {
		registerProfileEndpoints(app)

		app.Use(middleware.Logging(logger, &middleware.LoggingConfig{
			Skipper: func(e echo.Context) bool {
				if strings.HasPrefix(e.Request().RequestURI, "/healthz") {
					return true
				}
				return false
			},
		}))
	}
	app.Use(middleware.ErrorHandling(
		&middleware.ErrorHandlingOption{
			Handler: func(c echo.Context, err error) {
				traceID := c.Response().Header().Get(echo.HeaderXRequestID)
				c.JSON(http.StatusInternalServerError,
					handler.NewRESTStandardError(http.StatusInternalServerError, err.Error()).SetTraceID(traceID),
				)
				logger.Error(err.Error(), zap.String("trace.id", traceID))
			},
		},
	))
	app.Use(echo_middleware.Secure())
	if option.DevOP.APM {
		app.Use(apmechov4.Middleware())
	}
	app.Use(echo_middleware.CORS())
	app.Use(middleware.AbortRequest(&middleware.AbortRequestOption{
		Timeout: option.RequestTimeout,
		Skipper: func(c echo.Context) bool {
			return echo_middleware.DefaultSkipper(c) || c.IsWebSocket()
		},
	}))

	var (
		LearningPathHandler = handler.NewLearningPathHandler(LearningPathUseCase, logger)
		LearningPathStream  = handler.NewLearningPathStream(LearningPathUseCase, websocket)
	)

	createEndpoint(app,
		&endpoint{
			apiVersion:  apiVersion,
			middlewares: []echo.MiddlewareFunc{echo_middleware.RequestID(), middleware.SetTraceLogger(logger)},
			groups: []*apiGroup{
				{
					prefix: "/learning-paths",
					routes: []*route{
						{"GET", "", LearningPathHandler.HandleGetSnapshot, nil},
						{"POST", "", LearningPathHandler.HandleCreateLearningPath, nil},
						{"POST", "/refresh", LearningPathHandler.HandleRefresh, nil},
						{"GET", "/:id", LearningPathHandler.HandleGetLearningPath, nil},
						{"PUT", "/:id", LearningPathHandler.HandleUpdateLearningPath, nil},
						{"DELETE", "/:id", LearningPathHandler.HandleDeleteLearningPath, nil},
						{"POST", "/:id/lessons", LearningPathHandler.HandleAddLesson, nil},
						{"PUT", "/:id/lessons/:lessonId", LearningPathHandler.HandleUpdateLesson, nil},
						{"DELETE", "/:id/lessons/:lessonId", LearningPathHandler.HandleDeleteLesson, nil},
					},
				},
				{
					prefix: "/ws",
					routes: []*route{
						{"GET", "/learning-paths", websocket.WithHeartbeat(LearningPathStream.HandleStream), nil},
					},
				},
			},
		})
	return app
}

// Serve run http transport server until ctx is done
func Serve(
	ctx context.Context,
	kv driver.KeyValueDB,
	option *infra.AppConfig,
	LearningPathUseCase learningpath.LearningPathUseCase,
	logger *zap.Logger,
) error {
	app := NewApp(kv, option, LearningPathUseCase, logger)
	printRoutes(app, logger)

	addr := fmt.Sprintf("%s:%d", option.Host, option.Port)
	errc := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("server.address", addr))
		errc <- app.Start(addr)
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.Shutdown(shutdownCtx)
	}
}

// printRoutes log the application routes sorted by path, profiling routes excluded
func printRoutes(app *echo.Echo, logger *zap.Logger) {
	routes := app.Routes()
	sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })
	for _, r := range routes {
		if strings.HasPrefix(r.Path, "/debug") || strings.HasPrefix(r.Name, "github.com/labstack/echo") {
			continue
		}
		logger.Info("Registered route", zap.String("http.request.method", r.Method), zap.String("http.route", r.Path))
	}
}

func registerLivenessProbe(app *echo.Echo, kv driver.KeyValueDB) {
	app.GET("/healthz", func(c echo.Context) error {
		if kv.Ping(c.Request().Context()) == nil {
			c.NoContent(http.StatusOK)
		} else {
			c.NoContent(http.StatusServiceUnavailable)
		}
		return nil
	})
}

// profileHandlers pprof endpoints that are plain functions, the rest are named runtime profiles
var profileHandlers = map[string]http.HandlerFunc{
	"cmdline": pprof.Cmdline,
	"profile": pprof.Profile,
	"symbol":  pprof.Symbol,
	"trace":   pprof.Trace,
}

func registerProfileEndpoints(app *echo.Echo) {
	debug := app.Group("/debug")
	debug.GET("/vars", echo.WrapHandler(expvar.Handler()))
	debug.GET("/pprof/", echo.WrapHandler(http.HandlerFunc(pprof.Index)))
	for name, h := range profileHandlers {
		debug.GET("/pprof/"+name, echo.WrapHandler(h))
	}
	debug.GET("/pprof/:name", func(c echo.Context) error {
		return echo.WrapHandler(pprof.Handler(c.Param("name")))(c)
	})
}
