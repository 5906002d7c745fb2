package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/learning-path/internal/learningpath"
	"go.uber.org/zap"
)

// LearningPathHandler REST access to the learning path provider
type LearningPathHandler struct {
	useCase learningpath.LearningPathUseCase
	logger  *zap.Logger
}

func NewLearningPathHandler(UseCase learningpath.LearningPathUseCase, Logger *zap.Logger) *LearningPathHandler {
	return &LearningPathHandler{UseCase, Logger}
}

// LearningPathView a learning path with its lesson summaries
type LearningPathView struct {
	learningpath.LearningPath
	TotalLessonCount     int     `json:"totalLessonCount"`
	CompletedLessonCount int     `json:"completedLessonCount"`
	TotalDuration        float64 `json:"totalDuration"`
}

// SnapshotView wire form of a provider snapshot
type SnapshotView struct {
	LearningPaths []*LearningPathView `json:"learningPaths"`
	IsLoading     bool                `json:"isLoading"`
	LastError     string              `json:"lastError,omitempty"`
	Version       uint64              `json:"version"`
}

func newLearningPathView(path *learningpath.LearningPath) *LearningPathView {
	return &LearningPathView{
		LearningPath:         *path,
		TotalLessonCount:     path.TotalLessonCount(),
		CompletedLessonCount: path.CompletedLessonCount(),
		TotalDuration:        path.TotalDuration(),
	}
}

// NewSnapshotView convert snapshot for transport
func NewSnapshotView(snapshot learningpath.Snapshot) *SnapshotView {
	view := &SnapshotView{
		LearningPaths: make([]*LearningPathView, len(snapshot.LearningPaths)),
		IsLoading:     snapshot.IsLoading,
		Version:       snapshot.Version,
	}
	for i := range snapshot.LearningPaths {
		view.LearningPaths[i] = newLearningPathView(&snapshot.LearningPaths[i])
	}
	if snapshot.LastError != nil {
		view.LastError = snapshot.LastError.Error()
	}
	return view
}

type createLearningPathRequest struct {
	Name string `json:"name"`
}

func (lh *LearningPathHandler) HandleGetSnapshot(c echo.Context) error {
	return c.JSON(http.StatusOK, NewSnapshotView(lh.useCase.Snapshot()))
}

func (lh *LearningPathHandler) HandleGetLearningPath(c echo.Context) error {
	path := lh.useCase.LearningPath(c.Param("id"))
	if path == nil {
		return lh.notFound(c, "learning path")
	}
	return c.JSON(http.StatusOK, newLearningPathView(path))
}

func (lh *LearningPathHandler) HandleRefresh(c echo.Context) error {
	if err := lh.useCase.RefreshLearningPaths(c.Request().Context()); err != nil {
		return lh.renderError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (lh *LearningPathHandler) HandleCreateLearningPath(c echo.Context) error {
	req := new(createLearningPathRequest)
	if err := c.Bind(req); err != nil {
		return lh.badRequest(c, err)
	}

	path, err := lh.useCase.CreateLearningPath(c.Request().Context(), req.Name)
	if err != nil {
		return lh.renderError(c, err)
	}
	return c.JSON(http.StatusCreated, newLearningPathView(path))
}

func (lh *LearningPathHandler) HandleUpdateLearningPath(c echo.Context) error {
	update := new(learningpath.PathUpdate)
	if err := c.Bind(update); err != nil {
		return lh.badRequest(c, err)
	}

	path, err := lh.useCase.UpdateLearningPath(c.Request().Context(), c.Param("id"), update)
	if err != nil {
		return lh.renderError(c, err)
	}
	if path == nil {
		return lh.notFound(c, "learning path")
	}
	return c.JSON(http.StatusOK, newLearningPathView(path))
}

func (lh *LearningPathHandler) HandleDeleteLearningPath(c echo.Context) error {
	deleted, err := lh.useCase.DeleteLearningPath(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lh.renderError(c, err)
	}
	if !deleted {
		return lh.notFound(c, "learning path")
	}
	return c.NoContent(http.StatusNoContent)
}

func (lh *LearningPathHandler) HandleAddLesson(c echo.Context) error {
	input := new(learningpath.LessonInput)
	if err := c.Bind(input); err != nil {
		return lh.badRequest(c, err)
	}

	lesson, err := lh.useCase.AddLessonToPath(c.Request().Context(), c.Param("id"), input)
	if err != nil {
		return lh.renderError(c, err)
	}
	if lesson == nil {
		return lh.notFound(c, "learning path")
	}
	return c.JSON(http.StatusCreated, lesson)
}

func (lh *LearningPathHandler) HandleUpdateLesson(c echo.Context) error {
	update := new(learningpath.LessonUpdate)
	if err := c.Bind(update); err != nil {
		return lh.badRequest(c, err)
	}

	lesson, err := lh.useCase.UpdateLessonInPath(c.Request().Context(), c.Param("id"), c.Param("lessonId"), update)
	if err != nil {
		return lh.renderError(c, err)
	}
	if lesson == nil {
		return lh.notFound(c, "lesson")
	}
	return c.JSON(http.StatusOK, lesson)
}

func (lh *LearningPathHandler) HandleDeleteLesson(c echo.Context) error {
	deleted, err := lh.useCase.DeleteLessonFromPath(c.Request().Context(), c.Param("id"), c.Param("lessonId"))
	if err != nil {
		return lh.renderError(c, err)
	}
	if !deleted {
		return lh.notFound(c, "lesson")
	}
	return c.NoContent(http.StatusNoContent)
}

func (lh *LearningPathHandler) notFound(c echo.Context, what string) error {
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)
	return c.JSON(http.StatusNotFound,
		NewRESTStandardError(http.StatusNotFound, what+" not found").SetTraceID(traceID))
}

func (lh *LearningPathHandler) badRequest(c echo.Context, err error) error {
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)
	detail := err.Error()
	if he, ok := err.(*echo.HTTPError); ok {
		if msg, ok := he.Message.(string); ok {
			detail = msg
		}
	}
	return c.JSON(http.StatusBadRequest,
		NewRESTStandardError(http.StatusBadRequest, detail).SetTraceID(traceID))
}

// renderError map use case errors to responses, unknown errors go to the error middleware
func (lh *LearningPathHandler) renderError(c echo.Context, err error) error {
	traceID := c.Response().Header().Get(echo.HeaderXRequestID)

	var verr *learningpath.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest,
			NewRESTValidationError(http.StatusBadRequest, "Failed to validate params", verr.Fields).SetTraceID(traceID))
	case errors.Is(err, learningpath.ErrPersistenceUnavailable):
		lh.logger.Warn("Learning path storage unavailable", zap.String("trace.id", traceID), zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable,
			NewRESTStandardError(http.StatusServiceUnavailable, err.Error()).SetTraceID(traceID))
	}
	return err
}
