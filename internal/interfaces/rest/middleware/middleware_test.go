package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-path/internal/infrastructure/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func serve(e *echo.Echo, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestErrorHandling(t *testing.T) {
	var handled []error
	e := echo.New()
	e.Use(ErrorHandling(&ErrorHandlingOption{
		Handler: func(c echo.Context, err error) {
			handled = append(handled, err)
			c.NoContent(http.StatusInternalServerError)
		},
	}))
	e.GET("/error", func(c echo.Context) error { return errors.New("boom") })
	e.GET("/panic", func(c echo.Context) error { panic("kaboom") })
	e.GET("/http", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodGet, "/error").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(e, http.MethodGet, "/panic").Code)
	require.Len(t, handled, 2)
	assert.EqualError(t, handled[0], "boom")
	assert.EqualError(t, handled[1], "kaboom")

	rec := serve(e, http.MethodGet, "/http")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, "short and stout", rec.Body.String())

	rec = serve(e, http.MethodGet, "/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestAbortRequest(t *testing.T) {
	e := echo.New()
	e.Use(AbortRequest(&AbortRequestOption{
		Timeout: time.Minute,
		Skipper: func(c echo.Context) bool { return c.Path() == "/skip" },
	}))
	var deadlines []bool
	h := func(c echo.Context) error {
		_, ok := c.Request().Context().Deadline()
		deadlines = append(deadlines, ok)
		return c.NoContent(http.StatusOK)
	}
	e.GET("/bounded", h)
	e.GET("/skip", h)

	serve(e, http.MethodGet, "/bounded")
	serve(e, http.MethodGet, "/skip")
	assert.Equal(t, []bool{true, false}, deadlines)
}

func TestSetTraceLogger(t *testing.T) {
	base := zap.NewNop()
	e := echo.New()
	e.Use(SetTraceLogger(base))
	e.GET("/", func(c echo.Context) error {
		logger := logging.ExtractLoggerFromContext(c.Request().Context(), nil)
		assert.NotNil(t, logger)
		return c.NoContent(http.StatusOK)
	})

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/").Code)
}

func TestLoggingLevelByStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := echo.New()
	e.Use(Logging(zap.New(core), &LoggingConfig{
		Skipper: func(c echo.Context) bool { return c.Path() == "/skip" },
	}))
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "fine") })
	e.GET("/missing", func(c echo.Context) error { return c.NoContent(http.StatusNotFound) })
	e.GET("/broken", func(c echo.Context) error { return c.NoContent(http.StatusServiceUnavailable) })
	e.GET("/skip", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	serve(e, http.MethodGet, "/ok")
	serve(e, http.MethodGet, "/missing")
	serve(e, http.MethodGet, "/broken")
	serve(e, http.MethodGet, "/skip")

	entries := logs.AllUntimed()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, int64(4), entries[0].ContextMap()["http.response.body.bytes"])
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "Not Found", entries[1].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, int64(http.StatusServiceUnavailable), entries[2].ContextMap()["http.response.status_code"])
}
